package profile

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// Output file names inside the output directory.
const (
	ContactFile = "contact_compliance_summary.csv"
	AccountFile = "account_compliance_summary.csv"
)

// WriteCSV writes the contact and account tables into dir, creating it if
// needed. Empty tables still get a header.
func WriteCSV(dir string, contacts []ContactRow, accounts []AccountRow) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "profile: create output dir %s", dir)
	}
	if err := writeTable(filepath.Join(dir, ContactFile), ContactRow{}, contacts); err != nil {
		return err
	}
	return writeTable(filepath.Join(dir, AccountFile), AccountRow{}, accounts)
}

func writeTable(path string, header, rows any) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)
	if err := enc.EncodeHeader(header); err != nil {
		return eris.Wrapf(err, "profile: encode header for %s", path)
	}
	if err := enc.Encode(rows); err != nil {
		return eris.Wrapf(err, "profile: encode %s", path)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "profile: flush %s", path)
	}
	return eris.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644), "profile: write %s", path)
}
