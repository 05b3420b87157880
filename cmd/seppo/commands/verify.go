package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	seppoerrors "github.com/yairfalse/seppo/internal/errors"
)

func newVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "verify",
		Short:        "Run the post-deploy verification suite",
		SilenceUsage: true,
		Long: `Verify runs every configured check (HTTP endpoints, TCP ports, systemd
units, files, disk space) against the live system and reports the pass
rate. The same suite runs automatically after every deploy.`,
		Example: `  # Run all configured checks
  seppo verify

  # Machine-readable result
  seppo verify -o json

  # Fail below a stricter threshold than the configured one
  seppo verify --threshold 0.95`,
		RunE: runVerify,
	}

	cmd.Flags().Float64("threshold", 0, "minimum pass rate (default from configuration)")

	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := newLogger(cfg)

	suite, err := newVerifySuite(cfg, log)
	if err != nil {
		return err
	}
	if suite.Len() == 0 {
		fmt.Println("No verification checks configured.")
		return nil
	}

	report := suite.RunAll(cmd.Context())

	formatter, err := newFormatter(cfg)
	if err != nil {
		return err
	}
	rendered, err := formatter.FormatVerification(report)
	if err != nil {
		return err
	}
	fmt.Print(string(rendered))

	threshold := cfg.Verification.Threshold
	if flagged, _ := cmd.Flags().GetFloat64("threshold"); cmd.Flags().Changed("threshold") {
		threshold = flagged
	}

	summary := report.Summary()
	if summary.SuccessRate < threshold {
		failed := report.FailedChecks()
		names := make([]string, len(failed))
		for i := range failed {
			names[i] = failed[i].Name
		}
		return seppoerrors.NewVerificationFailure(summary.SuccessRate, threshold, names)
	}
	return nil
}
