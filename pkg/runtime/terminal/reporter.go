package terminal

import (
	"fmt"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/de-tools/cloudprice/pkg/services/refresh"
	"github.com/dustin/go-humanize"
)

// Reporter outputs refresh summaries to the console in a formatted text form
type Reporter struct {
	writer io.Writer
}

// NewReporter creates a new console reporter
func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

func (c *Reporter) Handle(summary refresh.Summary) error {
	funcMap := template.FuncMap{
		"comma": func(n int) string { return humanize.Comma(int64(n)) },
		"round": func(d time.Duration) time.Duration { return d.Round(time.Millisecond) },
	}

	tmpl := `
Cache refresh started {{.StartedAt.Format "2006-01-02 15:04:05"}} took {{round .Duration}}
Records cached: {{comma .Records}}
{{range .Providers}}
- {{.Provider}}: {{if .Err}}failed: {{.Err}}{{else}}{{comma .Records}} records{{end}}{{end}}
`
	t, err := template.New("refresh").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, summary)
}
