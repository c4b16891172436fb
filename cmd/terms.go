package main

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/searchterm"
)

// termsFile is the default search-term output name inside profile.output_dir.
const termsFile = "search_terms.csv"

var (
	termsInput  string
	termsOutput string
)

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Normalize an account export into search terms",
	Long:  "Reads a CSV or XLSX account export, derives name and e-mail domain search terms per account, and writes them as CSV.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("terms"); err != nil {
			return err
		}
		return runTerms(cmd.Context(), termsInput, termsOutput)
	},
}

func runTerms(ctx context.Context, input, output string) error {
	if output == "" {
		output = filepath.Join(cfg.Profile.OutputDir, termsFile)
	}

	n, err := initNormalizer(ctx)
	if err != nil {
		return err
	}

	terms, err := searchterm.Load(ctx, input, n)
	if err != nil {
		return eris.Wrap(err, "terms")
	}
	if err := searchterm.Write(output, terms); err != nil {
		return eris.Wrap(err, "terms")
	}

	zap.L().Info("search terms written",
		zap.Int("accounts", len(terms)),
		zap.String("input", input),
		zap.String("output", output),
	)
	return nil
}

func init() {
	termsCmd.Flags().StringVar(&termsInput, "input", "", "path to account export, .csv or .xlsx (required)")
	termsCmd.Flags().StringVar(&termsOutput, "output", "", "search-term CSV path (default <profile.output_dir>/search_terms.csv)")
	_ = termsCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(termsCmd)
}
