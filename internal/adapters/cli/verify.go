package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/stagerank/internal/verify"
)

var (
	verifyTarget      string
	verifyListen      string
	verifyCompetitors int
	verifyStages      int
	verifyClasses     []string
	verifyTimeout     time.Duration
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a running API against a synthetic match",
	Long: `Generates a match with random competitors and hit factors, serves it as a
results page, asks the API at --target to ingest it and compares every class
ranking the API then serves with rankings computed from the generated values.

The API must be able to reach --listen, and its source pattern, if any, must
accept addresses of the form http://<listen>/results/<match>/?mode=verify.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyTarget, "target", verify.DefaultBaseURL, "base address of the stagerank API")
	verifyCmd.Flags().StringVar(&verifyListen, "listen", verify.DefaultListenAddr, "address to serve the synthetic results page on")
	verifyCmd.Flags().IntVar(&verifyCompetitors, "competitors", verify.DefaultCompetitors, "number of competitors")
	verifyCmd.Flags().IntVar(&verifyStages, "stages", verify.DefaultStages, "number of stages")
	verifyCmd.Flags().StringSliceVar(&verifyClasses, "classes", verify.DefaultClasses, "competitor classes to draw from")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", verify.DefaultTimeout, "deadline of the whole run")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd.Context()); err != nil {
		return err
	}

	cfg := &verify.Config{
		BaseURL:     verifyTarget,
		ListenAddr:  verifyListen,
		Competitors: verifyCompetitors,
		Stages:      verifyStages,
		Classes:     verifyClasses,
		Timeout:     verifyTimeout,
	}
	stats, err := verify.Run(cmd.Context(), cfg)
	if stats != nil {
		if outErr := outputJSON(cmd, stats); outErr != nil && err == nil {
			err = outErr
		}
	}
	return err
}
