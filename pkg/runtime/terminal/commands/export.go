package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/de-tools/cloudprice/pkg/adapters"
	"github.com/de-tools/cloudprice/pkg/models/api"
	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// PutObjectAPI is the part of the S3 client the export needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Factory creates the uploader from the application's AWS configuration.
type S3Factory func(cfg aws.Config) PutObjectAPI

func DefaultS3Factory(cfg aws.Config) PutObjectAPI {
	return s3.NewFromConfig(cfg)
}

type Snapshot struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Count       int                `json:"count"`
	Sources     []api.SourceStatus `json:"sources"`
	Data        []api.Instance     `json:"data"`
}

type ExportCmd struct {
	load      Loader
	newS3     S3Factory
	out       io.Writer
	status    io.Writer
	now       func() time.Time
	bucket    string
	key       string
	providers []string
	timeout   time.Duration
}

func NewExportCmd(load Loader, newS3 S3Factory, out, status io.Writer) *cobra.Command {
	ec := &ExportCmd{load: load, newS3: newS3, out: out, status: status, now: time.Now}
	if ec.newS3 == nil {
		ec.newS3 = DefaultS3Factory
	}
	if ec.out == nil {
		ec.out = os.Stdout
	}
	if ec.status == nil {
		ec.status = os.Stderr
	}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Upload the normalized catalog to S3 as JSON",
		RunE:  ec.run,
	}

	cmd.Flags().StringVar(&ec.bucket, "bucket", "", "Destination S3 bucket")
	cmd.Flags().StringVar(&ec.key, "key", "", "Destination object key (default cloudprice/<timestamp>.json)")
	cmd.Flags().StringSliceVar(&ec.providers, "providers", nil, "Providers to export; all when empty")
	cmd.Flags().DurationVar(&ec.timeout, "timeout", 5*time.Minute, "Overall timeout")
	_ = cmd.MarkFlagRequired("bucket")

	return cmd
}

func (ec *ExportCmd) run(cmd *cobra.Command, _ []string) error {
	providers := make([]domain.Provider, 0, len(ec.providers))
	for _, name := range ec.providers {
		p, err := domain.ParseProvider(name)
		if err != nil {
			return err
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		providers = domain.AllProviders()
	}

	ctx, cancel := contextWithTimeout(cmd, ec.timeout)
	defer cancel()

	a, err := ec.load(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx = a.Logger.WithContext(ctx)

	sp := startSpinner(ec.status, "Collecting catalog ...")
	instances, sources := a.Compare.Collect(ctx, providers, fetcher.Query{})
	sp.Stop()

	generated := ec.now().UTC()
	snapshot := Snapshot{
		GeneratedAt: generated,
		Count:       len(instances),
		Data:        adapters.MapDomainInstancesToApi(instances),
	}
	for _, s := range sources {
		status := api.SourceStatus{Provider: string(s.Provider), OK: s.OK(), Records: s.Records}
		if !s.OK() {
			status.Reason = s.Err.Error()
		}
		snapshot.Sources = append(snapshot.Sources, status)
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := ec.key
	if key == "" {
		key = fmt.Sprintf("cloudprice/%s.json", generated.Format("20060102T150405Z"))
	}

	_, err = ec.newS3(a.AWS).PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(ec.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot to s3://%s/%s: %w", ec.bucket, key, err)
	}

	_, err = fmt.Fprintf(ec.out, "Uploaded %s offerings (%s) to s3://%s/%s\n",
		humanize.Comma(int64(len(instances))), humanize.Bytes(uint64(len(body))), ec.bucket, key)
	return err
}
