package main

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/match"
	"github.com/sells-group/compliance-cli/internal/searchterm"
)

var (
	matchInput           string
	matchStrategy        string
	matchContinueOnError bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match accounts to facilities",
	Long:  "Loads search terms (normalizing a raw account export on the fly), replaces the matched facility rows of every account in the batch, and writes a per-account summary.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if matchStrategy != "" {
			cfg.Match.Strategy = matchStrategy
		}
		if cmd.Flags().Changed("continue-on-error") {
			cfg.Match.ContinueOnError = matchContinueOnError
		}
		if err := cfg.Validate("match"); err != nil {
			return err
		}
		_, err := runMatch(cmd.Context(), matchInput)
		return err
	},
}

func runMatch(ctx context.Context, input string) (*match.BatchSummary, error) {
	n, err := initNormalizer(ctx)
	if err != nil {
		return nil, err
	}
	terms, err := searchterm.Load(ctx, input, n)
	if err != nil {
		return nil, eris.Wrap(err, "match")
	}

	strategy, err := initStrategy()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	metrics := match.NewMetrics()
	engine := match.NewEngine(st, strategy, match.Options{
		ContinueOnError: cfg.Match.ContinueOnError,
		Metrics:         metrics,
	})

	summary, err := engine.Run(ctx, terms)
	if err != nil {
		return nil, eris.Wrap(err, "match")
	}

	summaryPath := filepath.Join(cfg.Profile.OutputDir, match.SummaryFile)
	if err := summary.WriteCSV(summaryPath); err != nil {
		return summary, err
	}
	if cfg.Match.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.Match.MetricsFile); err != nil {
			return summary, err
		}
	}

	zap.L().Info("match complete",
		zap.String("run_id", summary.RunID.String()),
		zap.String("strategy", summary.Strategy),
		zap.Int("accounts", len(summary.Accounts)),
		zap.Int("failed", len(summary.Failed)),
		zap.Int64("deleted", summary.Deleted),
		zap.Int64("total_matches", summary.Totals.Total),
		zap.Int64("handler_name_match", summary.Totals.HandlerName),
		zap.Int64("owner_name_match", summary.Totals.OwnerName),
		zap.Int64("operator_name_match", summary.Totals.OperatorName),
		zap.Int64("contact_email_match", summary.Totals.ContactEmail),
		zap.Int64("owner_email_match", summary.Totals.OwnerEmail),
		zap.Int64("operator_email_match", summary.Totals.OperatorEmail),
		zap.String("summary", summaryPath),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func init() {
	matchCmd.Flags().StringVar(&matchInput, "input", "", "search-term CSV or account export (required)")
	matchCmd.Flags().StringVar(&matchStrategy, "strategy", "", "override match.strategy (facility or registry)")
	matchCmd.Flags().BoolVar(&matchContinueOnError, "continue-on-error", false, "record failing accounts and keep going instead of rolling back the batch")
	_ = matchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(matchCmd)
}
