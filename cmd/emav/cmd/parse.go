package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/RMahshie/emav/internal/unv"
	"github.com/RMahshie/emav/pkg/models"
)

var (
	parseJSON   bool
	parsePoints bool
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "Parse Universal File records",
	Long: `Parse reads the first dataset 58 record of every file and prints a
summary together with the parse diagnostics. Files are parsed in parallel;
a failing file does not stop the others.

Example:
  emav parse reference.unv reconstructed.unv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Print results as JSON")
	parseCmd.Flags().BoolVar(&parsePoints, "points", false, "Include magnitude/phase points (JSON only)")
	rootCmd.AddCommand(parseCmd)
}

// fileResult is the printable form of a parsedFile.
type fileResult struct {
	File        string                   `json:"file"`
	Record      *models.RecordSummary    `json:"record,omitempty"`
	Diagnostics *models.ParseDiagnostics `json:"diagnostics,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// parsedFile is the outcome of parsing one file.
type parsedFile struct {
	Path   string
	Result *unv.Result
	Err    error
}

// parseFiles parses every path concurrently. Results keep the order of paths
// and one failing file does not affect the others.
func parseFiles(reader *unv.Reader, paths []string) []parsedFile {
	results := make([]parsedFile, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			res, err := readRecord(reader, path)
			if err != nil {
				log.Debug().Err(err).Str("file", path).Msg("parse failed")
			}
			results[i] = parsedFile{Path: path, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func summarize(p parsedFile, includePoints bool) fileResult {
	r := fileResult{File: p.Path}
	if p.Err != nil {
		r.Error = p.Err.Error()
		return r
	}
	summary := models.Summarize(p.Result.Record, includePoints)
	diag := p.Result.Diagnostics
	r.Record = &summary
	r.Diagnostics = &diag
	return r
}

func runParse(cmd *cobra.Command, args []string) error {
	parsed := parseFiles(newReader(), args)

	results := make([]fileResult, len(parsed))
	failed := 0
	for i, p := range parsed {
		results[i] = summarize(p, parsePoints && parseJSON)
		if p.Err != nil {
			failed++
		}
	}

	out := cmd.OutOrStdout()
	if parseJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			printFileResult(out, r)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be parsed", failed, len(results))
	}
	return nil
}

func printFileResult(w io.Writer, r fileResult) {
	fmt.Fprintf(w, "%s\n", color.Bold.Sprint(r.File))
	if r.Error != "" {
		fmt.Fprintf(w, "  %s %s\n\n", color.Red.Sprint("FAILED"), r.Error)
		return
	}

	rec, diag := r.Record, r.Diagnostics
	fmt.Fprintf(w, "  Record:   %s (%s, data type %d)\n", rec.Name, rec.Shape, rec.DataType)
	fmt.Fprintf(w, "  Points:   %d (%.2f - %.2f Hz)\n", rec.PointCount, rec.FrequencyMin, rec.FrequencyMax)
	if rec.Meta.Description != "" {
		fmt.Fprintf(w, "  Title:    %s\n", rec.Meta.Description)
	}

	switch diag.Tier {
	case models.TierResilient:
		fmt.Fprintf(w, "  Parser:   resilient (marker line %d, data line %d)\n", diag.MarkerLine, diag.PayloadLine)
	default:
		fmt.Fprintf(w, "  Parser:   fallback (%d blocks filtered)\n", diag.FilteredBlocks)
	}
	fmt.Fprintf(w, "  Values:   %d of %d read\n", diag.ValuesCollected, diag.ValuesExpected)
	if diag.SkippedTokens > 0 {
		fmt.Fprintf(w, "  Skipped:  %d tokens\n", diag.SkippedTokens)
	}
	if diag.LowConfidence() {
		reason := fmt.Sprintf("%d values zero-padded", diag.PaddedValues)
		if diag.SafetyBoundHit {
			reason = "payload cut at the line safety bound, " + reason
		}
		fmt.Fprintf(w, "  %s %s\n", color.Yellow.Sprint("LOW CONFIDENCE"), reason)
	}
	fmt.Fprintln(w)
}
