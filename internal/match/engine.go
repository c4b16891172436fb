package match

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/store"
)

// AccountError attributes a matching failure to one account.
type AccountError struct {
	AccountID   string
	AccountName string
	Err         error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("match: account %s (%s): %v", e.AccountID, e.AccountName, e.Err)
}

func (e *AccountError) Unwrap() error { return e.Err }

// Options tunes an Engine.
type Options struct {
	// ContinueOnError isolates each account in a savepoint and records its
	// failure instead of rolling back the batch.
	ContinueOnError bool

	// ProgressInterval is the minimum time between progress log lines.
	// Zero means 10s.
	ProgressInterval time.Duration

	// Metrics, when set, is updated after every committed batch.
	Metrics *Metrics
}

// Engine runs one Strategy over batches of search terms.
type Engine struct {
	store    store.Store
	strategy Strategy
	opts     Options
	log      *zap.Logger
}

// NewEngine creates an Engine writing through st.
func NewEngine(st store.Store, strategy Strategy, opts Options) *Engine {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 10 * time.Second
	}
	return &Engine{
		store:    st,
		strategy: strategy,
		opts:     opts,
		log:      zap.L().With(zap.String("component", "match"), zap.String("strategy", strategy.Name())),
	}
}

// Run matches every account in terms. Prior matches of the batch's accounts
// are deleted and the new ones inserted in a single transaction; accounts
// outside the batch are untouched. By default the first failing account
// aborts and rolls back the whole batch.
func (e *Engine) Run(ctx context.Context, terms []model.SearchTerm) (*BatchSummary, error) {
	summary := &BatchSummary{
		RunID:     uuid.New(),
		Strategy:  e.strategy.Name(),
		StartedAt: time.Now().UTC(),
	}
	log := e.log.With(zap.String("run_id", summary.RunID.String()))

	ids, err := batchAccountIDs(terms)
	if err != nil {
		return nil, err
	}

	// Build every statement before the store is touched.
	d := e.store.Dialect()
	stmts := make([]*Statement, len(terms))
	buildErrs := make([]*AccountError, len(terms))
	for i, t := range terms {
		stmt, err := e.strategy.BuildInsert(d, t)
		if err != nil {
			aerr := &AccountError{AccountID: t.AccountID, AccountName: t.AccountName, Err: err}
			if !e.opts.ContinueOnError {
				log.Error("building match statement failed",
					zap.String("account_id", t.AccountID),
					zap.String("account_name", t.AccountName),
					zap.Error(err),
				)
				return nil, aerr
			}
			buildErrs[i] = aerr
		}
		stmts[i] = stmt
	}

	if err := e.strategy.Prepare(ctx, e.store); err != nil {
		return nil, eris.Wrapf(err, "match: prepare %s strategy", e.strategy.Name())
	}

	log.Info("matching batch", zap.Int("accounts", len(terms)), zap.String("table", e.strategy.Table()))

	err = e.store.InTx(ctx, func(tx store.Tx) error {
		summary.Accounts = summary.Accounts[:0]
		summary.Failed = summary.Failed[:0]
		summary.Totals = model.FlagCounts{}

		deleted, err := deleteAccounts(ctx, tx, d, e.strategy.Table(), ids)
		if err != nil {
			return err
		}
		summary.Deleted = deleted

		progress := rate.Sometimes{First: 1, Interval: e.opts.ProgressInterval}
		for i, t := range terms {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "match: batch cancelled")
			}

			as := AccountSummary{AccountID: t.AccountID, AccountName: t.AccountName}
			aerr := buildErrs[i]
			if aerr == nil {
				counts, err := e.matchAccount(ctx, tx, stmts[i], t.AccountID)
				if err != nil {
					aerr = &AccountError{AccountID: t.AccountID, AccountName: t.AccountName, Err: err}
				} else {
					as.FlagCounts = counts
				}
			}

			if aerr != nil {
				log.Error("account match failed",
					zap.String("account_id", t.AccountID),
					zap.String("account_name", t.AccountName),
					zap.Error(aerr.Err),
				)
				if !e.opts.ContinueOnError {
					return aerr
				}
				as.Error = aerr.Err.Error()
				summary.Failed = append(summary.Failed, aerr)
			}

			summary.Accounts = append(summary.Accounts, as)
			summary.Totals.Add(as.FlagCounts)
			progress.Do(func() {
				log.Info("match progress",
					zap.Int("done", i+1),
					zap.Int("total", len(terms)),
					zap.Int64("matches", summary.Totals.Total),
				)
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary.Duration = time.Since(summary.StartedAt)
	if e.opts.Metrics != nil {
		e.opts.Metrics.Observe(summary)
	}

	log.Info("batch matched",
		zap.Int("accounts", len(summary.Accounts)),
		zap.Int("failed", len(summary.Failed)),
		zap.Int64("deleted", summary.Deleted),
		zap.Int64("matches", summary.Totals.Total),
		zap.Duration("elapsed", summary.Duration),
	)
	return summary, nil
}

// matchAccount inserts one account's matches and reads back its counts.
// With ContinueOnError the work runs in a savepoint so a failure leaves the
// rest of the batch intact.
func (e *Engine) matchAccount(ctx context.Context, tx store.Tx, stmt *Statement, accountID string) (model.FlagCounts, error) {
	if stmt == nil {
		return model.FlagCounts{}, nil
	}

	var counts model.FlagCounts
	work := func(q store.Querier) error {
		if _, err := q.Exec(ctx, stmt.SQL, stmt.Args...); err != nil {
			return eris.Wrap(err, "match: insert matches")
		}
		c, err := countMatches(ctx, q, e.store.Dialect(), e.strategy.Table(), accountID)
		if err != nil {
			return err
		}
		counts = c
		return nil
	}

	var err error
	if e.opts.ContinueOnError {
		err = tx.Savepoint(ctx, work)
	} else {
		err = work(tx)
	}
	return counts, err
}

// batchAccountIDs returns the unique account ids in input order. Blank or
// repeated ids are schema errors and fail the batch up front.
func batchAccountIDs(terms []model.SearchTerm) ([]string, error) {
	seen := make(map[string]struct{}, len(terms))
	ids := make([]string, 0, len(terms))
	for i, t := range terms {
		if t.AccountID == "" {
			return nil, eris.Errorf("match: search term %d has no account_id", i)
		}
		if _, dup := seen[t.AccountID]; dup {
			return nil, eris.Errorf("match: account_id %s appears more than once in batch", t.AccountID)
		}
		seen[t.AccountID] = struct{}{}
		ids = append(ids, t.AccountID)
	}
	return ids, nil
}
