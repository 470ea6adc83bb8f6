package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/RMahshie/emav/internal/config"
	"github.com/RMahshie/emav/internal/logging"
	"github.com/RMahshie/emav/internal/unv"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// Global flags
var (
	logLevel         string
	logFormat        string
	noColor          bool
	filteredDatasets []string
)

var rootCmd = &cobra.Command{
	Use:   "emav",
	Short: "FRF record parser and reconstruction validator",
	Long: `emav reads frequency response functions from Universal File (.unv)
dataset 58 records and scores reconstructed FRFs against experimental ones.

Features:
  - Resilient parsing of simplified dataset 58 exports with strict fallback
  - Linear-magnitude export of two-column records
  - RMSE, MAE, R², FRAC and resonant peak matching`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetupWriter(config.LoggingConfig{Level: logLevel, Format: logFormat}, cmd.ErrOrStderr())
		color.Enable = !noColor
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.Red.Sprint("Error: ")+err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console",
		"Log format (console, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable coloured output")
	rootCmd.PersistentFlags().StringSliceVar(&filteredDatasets, "filter", unv.DefaultFilteredDatasets,
		"Dataset markers removed before the fallback reader runs")
}

func newReader() *unv.Reader {
	return unv.NewReader(filteredDatasets...)
}

// readFile loads the whole file; the handle is released before parsing.
func readFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// readRecord loads path and parses its first function record.
func readRecord(reader *unv.Reader, path string) (*unv.Result, error) {
	content, err := readFile(path)
	if err != nil {
		return nil, err
	}
	res, err := reader.Read(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
