package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/JonMunkholm/leadsync/internal/core"
)

// FileSource reads the lead block from a CSV export of the sheet. The file
// is re-read on every fetch so edits are picked up by the next cycle.
type FileSource struct {
	Path string
}

// FetchRows returns every record of the file, header included.
func (f *FileSource) FetchRows(ctx context.Context) ([]core.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}

	rows := make([]core.RawRow, len(records))
	for i, rec := range records {
		rows[i] = core.RawRow(rec)
	}
	return rows, nil
}
