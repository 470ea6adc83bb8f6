package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/RMahshie/emav/internal/validation"
	"github.com/RMahshie/emav/pkg/models"
)

var (
	referencePath     string
	reconstructedPath string
	validateMode      string
	validateJSON      bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compare a reconstructed FRF with a reference FRF",
	Long: `Validate parses both records, interpolates the reference onto the
reconstructed frequency grid and reports global error metrics, R², FRAC and
matched resonant peaks.

Modes:
  complex    read the reconstructed record as real/imaginary pairs (default)
  amplitude  read only its first column as a real magnitude

Example:
  emav validate --reference test.unv --reconstructed model.unv`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&referencePath, "reference", "r", "", "Experimental (reference) record")
	validateCmd.Flags().StringVarP(&reconstructedPath, "reconstructed", "m", "", "Reconstructed record")
	validateCmd.Flags().StringVar(&validateMode, "mode", string(validation.ModeComplex), "How the reconstructed record is read (complex, amplitude)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print the report as JSON")
	_ = validateCmd.MarkFlagRequired("reference")
	_ = validateCmd.MarkFlagRequired("reconstructed")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	mode, err := validation.ParseMode(validateMode)
	if err != nil {
		return err
	}

	parsed := parseFiles(newReader(), []string{referencePath, reconstructedPath})
	for _, p := range parsed {
		if p.Err != nil {
			return p.Err
		}
	}
	ref, rec := parsed[0].Result, parsed[1].Result

	comparison, err := validation.ComputeRecords(ref.Record, rec.Record, mode)
	if err != nil {
		return err
	}

	outcome := models.ValidationOutcome{
		Report:                   comparison.Report,
		Bands:                    validation.BandsOf(comparison.Report),
		Text:                     validation.RenderText(comparison.Report),
		OverlapFraction:          comparison.Overlap,
		ReferenceDiagnostics:     ref.Diagnostics,
		ReconstructedDiagnostics: rec.Diagnostics,
	}

	out := cmd.OutOrStdout()
	if validateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	}
	printOutcome(out, outcome)
	return nil
}

func printOutcome(w io.Writer, o models.ValidationOutcome) {
	fmt.Fprint(w, o.Text)
	fmt.Fprintln(w)

	if o.Bands.R2 != "" {
		fmt.Fprintf(w, "R² quality:   %s\n", bandColor(o.Bands.R2))
	}
	if o.Bands.FRAC != "" {
		fmt.Fprintf(w, "FRAC quality: %s\n", bandColor(o.Bands.FRAC))
	}

	if o.OverlapFraction < 1 {
		fmt.Fprintf(w, "%s reference covers %.1f%% of the reconstructed grid; the rest was compared against zero\n",
			color.Yellow.Sprint("WARNING"), 100*o.OverlapFraction)
	}
	for _, d := range []struct {
		name string
		diag models.ParseDiagnostics
	}{{"reference", o.ReferenceDiagnostics}, {"reconstructed", o.ReconstructedDiagnostics}} {
		if d.diag.LowConfidence() {
			fmt.Fprintf(w, "%s %s record was zero-padded by %d values\n",
				color.Yellow.Sprint("WARNING"), d.name, d.diag.PaddedValues)
		}
	}
}

func bandColor(band string) string {
	switch validation.Band(band) {
	case validation.BandExcellent:
		return color.Green.Sprint(band)
	case validation.BandGood:
		return color.Cyan.Sprint(band)
	case validation.BandModerate:
		return color.Yellow.Sprint(band)
	default:
		return color.Red.Sprint(band)
	}
}
