package tabular

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// streamCSV reads r and sends every record, header included, on the row
// channel. A leading byte-order mark is dropped and UTF-16 input is
// transcoded to UTF-8. Errors are sent on the error channel. Both channels are closed
// when reading completes.
func streamCSV(ctx context.Context, r io.Reader) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1 // exports often carry ragged trailing cells

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSVRows reads every record of a CSV stream, without header handling.
func ReadCSVRows(ctx context.Context, r io.Reader) ([][]string, error) {
	rowCh, errCh := streamCSV(ctx, r)
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadCSV reads a header-first CSV stream into a Table.
func ReadCSV(ctx context.Context, r io.Reader) (*Table, error) {
	rows, err := ReadCSVRows(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.New("tabular: csv has no header row")
	}
	return NewTable(rows[0], rows[1:]), nil
}
