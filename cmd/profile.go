package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/profile"
	"github.com/sells-group/compliance-cli/internal/window"
)

var (
	profileOutputDir string
	profileLookback  int
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Build contact and account compliance profiles",
	Long:  "Reads evaluations, violations and enforcement actions of matched facilities inside the lookback window and writes contact-level and account-level metric tables.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if profileOutputDir != "" {
			cfg.Profile.OutputDir = profileOutputDir
		}
		if profileLookback > 0 {
			cfg.Profile.LookbackYears = profileLookback
		}
		if err := cfg.Validate("profile"); err != nil {
			return err
		}
		return runProfile(cmd.Context(), time.Now())
	},
}

func runProfile(ctx context.Context, now time.Time) error {
	win, err := window.New(now, cfg.Profile.LookbackYears)
	if err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	b := window.NewBuilder(st, window.Tables{
		Evaluations:  cfg.Profile.EvaluationTable,
		Violations:   cfg.Profile.ViolationTable,
		Enforcements: cfg.Profile.EnforcementTable,
	}, win, cfg.Profile.Threads)

	views, err := b.Build(ctx)
	if err != nil {
		return eris.Wrap(err, "profile")
	}

	a := profile.NewAssembler(views, win)
	contacts, accounts := a.ContactRows(), a.AccountRows()
	if err := profile.WriteCSV(cfg.Profile.OutputDir, contacts, accounts); err != nil {
		return err
	}

	zap.L().Info("profiles written",
		zap.String("window", win.String()),
		zap.Int("contacts", len(contacts)),
		zap.Int("accounts", len(accounts)),
		zap.String("output_dir", cfg.Profile.OutputDir),
	)
	return nil
}

func init() {
	profileCmd.Flags().StringVar(&profileOutputDir, "output-dir", "", "override profile.output_dir")
	profileCmd.Flags().IntVar(&profileLookback, "lookback", 0, "override profile.lookback_years")
	rootCmd.AddCommand(profileCmd)
}
