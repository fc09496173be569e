package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/iho/txengine/internal/domain"
)

var snapshotHeader = []string{"client", "available", "held", "total", "locked"}

// Writer emits account snapshots as CSV with a header row.
type Writer struct {
	out       io.Writer
	precision int32
}

// NewWriter creates a Writer formatting amounts with precision decimal
// places.
func NewWriter(out io.Writer, precision int32) *Writer {
	return &Writer{out: out, precision: precision}
}

// Write implements usecase.SnapshotWriter.
func (w *Writer) Write(ctx context.Context, snapshots []domain.AccountSnapshot) error {
	cw := csv.NewWriter(w.out)

	if err := cw.Write(snapshotHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, s := range snapshots {
		if err := ctx.Err(); err != nil {
			return err
		}

		row := []string{
			strconv.FormatUint(uint64(s.Client), 10),
			s.Available.StringFixed(w.precision),
			s.Held.StringFixed(w.precision),
			s.Total.StringFixed(w.precision),
			strconv.FormatBool(s.Locked),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write client %d: %w", s.Client, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
