// Command annotation-report is the unified CLI for the annotation
// quality and aggregation pipeline.
//
// Usage:
//
//	annotation-report                 Show help
//	annotation-report sample          Draw a stratified pilot batch from a corpus
//	annotation-report import          Import annotations from a Label Studio export
//	annotation-report iaa             Compute inter-annotator agreement for a batch
//	annotation-report adjudicate      Build or apply a disagreement worklist
//	annotation-report aggregate       Run or inspect consensus aggregation
//	annotation-report export          Validate and export a batch
//	annotation-report score           Score annotators against the gold set
//	annotation-report serve           Serve the report API and chart pages
//	annotation-report migrate         Manage database schema migrations
package main

import (
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/dhvani-data/annotation.report/internal/version"
)

const usage = `annotation-report: annotation quality and aggregation pipeline

Usage:
  annotation-report <command> [flags]

Commands:
  sample      Draw a stratified pilot batch and gold candidates from a corpus
  import      Import annotations from a Label Studio export
  iaa         Compute inter-annotator agreement for a batch
  adjudicate  Build or apply a disagreement worklist
  aggregate   Run or inspect consensus aggregation
  export      Validate and export a batch as JSONL, CSV and a manifest
  score       Score annotators against the gold set
  serve       Serve the JSON report API and chart pages
  migrate     Manage database schema migrations
  version     Print version information

Most commands take -db (default: annotations.db) and -config pointing at
an engine config JSON file.

Run 'annotation-report <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "sample":
		runSample()
	case "import":
		runImport()
	case "iaa":
		runIAA()
	case "adjudicate":
		runAdjudicate()
	case "aggregate":
		runAggregate()
	case "export":
		runExport()
	case "score":
		runScore()
	case "serve":
		runServe()
	case "migrate":
		runMigrate()
	case "version":
		runVersion()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "annotation-report: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}

func runVersion() {
	fmt.Printf("annotation-report %s (commit %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
}
