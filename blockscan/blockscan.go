// Package blockscan walks a chain from a stored checkpoint in fixed-size lots.
package blockscan

import (
	"context"

	"gorm.io/gorm"

	"ibetwstbridge/db"
)

// Range is an inclusive block range.
type Range struct {
	From uint64
	To   uint64
}

// Ranges splits (checkpoint, upper] into consecutive lots of at most lot
// blocks. It returns nil when there is nothing past the checkpoint.
func Ranges(checkpoint, upper, lot uint64) []Range {
	from := checkpoint + 1
	if from > upper {
		return nil
	}
	if lot == 0 {
		lot = upper - checkpoint
	}
	var out []Range
	to := from + lot - 1
	for to < upper {
		out = append(out, Range{From: from, To: to})
		from += lot
		to += lot
	}
	return append(out, Range{From: from, To: upper})
}

// Result reports what one Scan covered. Skipped is set when the checkpoint
// was already at the upper bound.
type Result struct {
	Checkpoint uint64
	Upper      uint64
	Lots       int
	Skipped    bool
}

// Scan reads the checkpoint of stream, hands every lot up to upper to fn and
// stores upper as the new checkpoint, all in one database transaction. Any
// error from fn rolls back every write of the run.
func Scan(ctx context.Context, database *gorm.DB, stream string, upper, lot uint64, fn func(tx *gorm.DB, r Range) error) (Result, error) {
	res := Result{Upper: upper}
	err := db.RunDBTransaction(database, func(tx *gorm.DB) error {
		checkpoint, err := db.GetSyncedBlock(ctx, tx, stream)
		if err != nil {
			return err
		}
		res.Checkpoint = checkpoint

		ranges := Ranges(checkpoint, upper, lot)
		if len(ranges) == 0 {
			res.Skipped = true
			return nil
		}
		for _, r := range ranges {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(tx, r); err != nil {
				return err
			}
			res.Lots++
		}
		return db.SetSyncedBlock(ctx, tx, stream, upper)
	})
	return res, err
}
