package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seenimoa/krxvalue/internal/analysis/fundamental"
	"github.com/seenimoa/krxvalue/internal/report"
)

func addValuationFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("rrr", 0, "required rate of return K in percent (default from config)")
	cmd.Flags().Int("periods", 0, "number of recent periods averaged (default from config)")
	cmd.Flags().String("basis", "", "statement basis: annual or quarterly (default from config)")
}

// valuationFlags overlays the --rrr, --periods and --basis flags on base.
// Only flags set on the command line override.
func valuationFlags(cmd *cobra.Command, base fundamental.Options) (fundamental.Options, error) {
	opts := base
	flags := cmd.Flags()

	if flags.Changed("rrr") {
		k, _ := flags.GetFloat64("rrr")
		if k <= 0 || k > 100 {
			return opts, fmt.Errorf("--rrr must be in (0, 100], got %g", k)
		}
		opts.RequiredReturn = k
	}
	if flags.Changed("periods") {
		n, _ := flags.GetInt("periods")
		if n < 1 || n > 10 {
			return opts, fmt.Errorf("--periods must be between 1 and 10, got %d", n)
		}
		opts.AveragePeriods = n
	}
	if flags.Changed("basis") {
		s, _ := flags.GetString("basis")
		b, err := fundamental.ParseBasis(strings.ToLower(s))
		if err != nil {
			return opts, err
		}
		opts.Basis = b
	}
	return opts, nil
}

func formatFlag(cmd *cobra.Command) (report.Format, error) {
	s, _ := cmd.Flags().GetString("format")
	return report.ParseFormat(s)
}
