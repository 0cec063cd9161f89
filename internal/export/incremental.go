package export

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"moneyflow/internal/core"
	"moneyflow/internal/storage"
)

// TransactionSource lists the transactions eligible for export.
type TransactionSource interface {
	Transactions(ctx context.Context) ([]core.Transaction, error)
}

// Appender is the spreadsheet side of an incremental run. Satisfied by
// SheetsExporter.
type Appender interface {
	Export(ctx context.Context, txs []core.Transaction, names CategoryNamer) error
}

// Incremental wraps an Appender with a persisted watermark so each
// transaction is appended at most once across runs. Transaction ids are
// decimal millisecond stamps, so the watermark is simply the highest id
// exported so far.
type Incremental struct {
	sheet Appender
	kv    storage.Store
}

func NewIncremental(sheet Appender, kv storage.Store) *Incremental {
	return &Incremental{sheet: sheet, kv: kv}
}

// Run exports every transaction minted since the previous run, oldest
// first, and advances the watermark. Returns the number of rows appended.
func (i *Incremental) Run(ctx context.Context, src TransactionSource, names CategoryNamer) (int, error) {
	watermark, err := i.loadWatermark(ctx)
	if err != nil {
		return 0, err
	}

	txs, err := src.Transactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing transactions for export: %w", err)
	}

	type stamped struct {
		id int64
		tx core.Transaction
	}
	fresh := make([]stamped, 0)
	for _, t := range txs {
		id, err := strconv.ParseInt(t.ID, 10, 64)
		if err != nil {
			// Server-assigned ids may not be numeric; those rows are
			// the server's to export.
			continue
		}
		if id > watermark {
			fresh = append(fresh, stamped{id: id, tx: t})
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	sort.Slice(fresh, func(a, b int) bool { return fresh[a].id < fresh[b].id })

	rows := make([]core.Transaction, len(fresh))
	for n, s := range fresh {
		rows[n] = s.tx
	}
	if err := i.sheet.Export(ctx, rows, names); err != nil {
		return 0, err
	}

	if err := i.saveWatermark(ctx, fresh[len(fresh)-1].id); err != nil {
		return len(rows), err
	}
	return len(rows), nil
}

func (i *Incremental) loadWatermark(ctx context.Context) (int64, error) {
	blob, ok, err := i.kv.Load(ctx, storage.KeySheetsExport)
	if err != nil {
		return 0, fmt.Errorf("loading export watermark: %w", err)
	}
	if !ok {
		return 0, nil
	}
	var mark int64
	if err := json.Unmarshal(blob, &mark); err != nil {
		return 0, nil
	}
	return mark, nil
}

func (i *Incremental) saveWatermark(ctx context.Context, mark int64) error {
	blob, err := json.Marshal(mark)
	if err != nil {
		return err
	}
	if err := i.kv.Save(ctx, storage.KeySheetsExport, blob); err != nil {
		return fmt.Errorf("saving export watermark: %w", err)
	}
	return nil
}
