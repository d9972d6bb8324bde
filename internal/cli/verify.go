package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/schoolmon/internal/llm"
	"github.com/ppiankov/schoolmon/internal/verify"
	"github.com/ppiankov/schoolmon/internal/worker"
)

var (
	verifySource      string
	verifyExtraction  string
	verifyNow         string
	verifyDir         string
	verifyConcurrency int
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a recorded model answer against its source mail",
	Long: `Run the verification engine offline, without Gmail, Slack or a model.

Single mode reads a source text file and a raw model answer and prints the
verified extraction as JSON.

Replay mode (--dir) loads every *.yaml fixture in a directory, verifies
them concurrently and compares each result with the fixture's expectations.
A fixture looks like:

  name: snow-day
  now: 2025-01-10
  source: |
    No school Friday, January 17 due to the storm.
  extraction: |
    {"summary": "Snow day", "events": [...]}
  expect:
    verified: ["Snow day"]`,
	Example: `  schoolmon verify --source mail.txt --extraction answer.json
  schoolmon verify --dir testdata/fixtures --concurrency 8`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifySource, "source", "", "file with the collected email text")
	verifyCmd.Flags().StringVar(&verifyExtraction, "extraction", "", "file with the raw model answer")
	verifyCmd.Flags().StringVar(&verifyNow, "now", "", "reference date (YYYY-MM-DD or RFC 3339) instead of the clock")
	verifyCmd.Flags().StringVar(&verifyDir, "dir", "", "replay every fixture in this directory")
	verifyCmd.Flags().IntVar(&verifyConcurrency, "concurrency", 4, "fixtures verified in parallel (replay mode)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	if verifyDir != "" {
		return runReplay(cmd)
	}
	if verifySource == "" || verifyExtraction == "" {
		return fmt.Errorf("either --dir or both --source and --extraction are required")
	}

	source, err := os.ReadFile(verifySource)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	raw, err := os.ReadFile(verifyExtraction)
	if err != nil {
		return fmt.Errorf("read extraction: %w", err)
	}

	now, err := worker.Fixture{Name: "cli", Now: verifyNow}.Clock()
	if err != nil {
		return err
	}

	candidate, err := llm.ParseExtraction(string(raw))
	if err != nil {
		return err
	}

	logger := setupLogger(verbose, logFormat)
	result := verify.New(verify.WithNow(now), verify.WithLogger(logger)).Verify(candidate, string(source))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runReplay(cmd *cobra.Command) error {
	start := time.Now()

	processor := worker.NewReplayProcessor(verifyConcurrency)
	results, err := processor.RunDir(cmd.Context(), verifyDir)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no fixtures found in %s", verifyDir)
	}

	failed := 0
	for _, r := range results {
		if rerr := r.GetError(); rerr != nil {
			failed++
			fmt.Printf("FAIL  %s\n      %v\n", r.Name, rerr)
			continue
		}
		fmt.Printf("ok    %s (verified=%d unverified=%d)\n",
			r.Name, len(r.Extraction.Verified()), len(r.Extraction.Unverified()))
	}

	fmt.Printf("\n%d fixtures, %d failed (%s)\n", len(results), failed, time.Since(start).Round(time.Millisecond))
	if failed > 0 {
		return fmt.Errorf("%d fixture(s) failed", failed)
	}
	return nil
}
