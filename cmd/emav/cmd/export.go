package cmd

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/RMahshie/emav/internal/unv"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Export the amplitude form of a record",
	Long: `Export converts a two-column (real/imaginary) record into a single-column
linear-magnitude record and writes it as a dataset 58 block. Records of any
other shape are written unchanged.

Example:
  emav export model.unv --out model_amplitude.unv`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	res, err := readRecord(newReader(), args[0])
	if err != nil {
		return err
	}

	if exportOut == "" {
		_, err := unv.ExportAmplitude(cmd.OutOrStdout(), res.Record)
		return err
	}

	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOut, err)
	}
	defer f.Close()

	derived, err := unv.ExportAmplitude(f, res.Record)
	if err != nil {
		return fmt.Errorf("write %s: %w", exportOut, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", exportOut, err)
	}

	if derived {
		cmd.Printf("%s amplitude record written to %s\n", color.Green.Sprint("OK"), exportOut)
	} else {
		cmd.Printf("%s record is already %s, written unchanged to %s\n",
			color.Yellow.Sprint("NOTE"), res.Record.Shape, exportOut)
	}
	return nil
}
