package main

import (
	"fmt"
	"os"

	"github.com/de-tools/cloudprice/pkg/runtime/terminal"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cli := terminal.NewCLI(terminal.Options{
		Output: os.Stdout,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
