package match

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/model"
)

// SummaryFile is the per-account summary written next to the outputs.
const SummaryFile = "search_summary.csv"

// AccountSummary is the match count of one account in a batch.
type AccountSummary struct {
	AccountID   string `csv:"account_id"`
	AccountName string `csv:"account_name"`
	model.FlagCounts
	Error string `csv:"error,omitempty"`
}

// BatchSummary is the structured result of Engine.Run.
type BatchSummary struct {
	RunID     uuid.UUID
	Strategy  string
	StartedAt time.Time
	Duration  time.Duration

	// Deleted is the number of prior match rows removed for the batch.
	Deleted  int64
	Accounts []AccountSummary
	Totals   model.FlagCounts
	Failed   []*AccountError
}

// WriteCSV writes the per-account summary to path.
func (b *BatchSummary) WriteCSV(path string) error {
	data, err := csvutil.Marshal(b.Accounts)
	if err != nil {
		return eris.Wrap(err, "match: marshal summary")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "match: create dir for %s", path)
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "match: write summary %s", path)
}
