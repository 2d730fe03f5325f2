package actionlog

import (
	"context"
	"fmt"

	"github.com/weftlabs/weft/internal/ir"
)

// Append inserts a record into the log. ON CONFLICT(id) DO NOTHING makes
// the append idempotent: record IDs are content-addressed, so a duplicate
// append of the same record is silently ignored.
//
// The log does not validate causal correctness beyond shape; that is the
// engine's job.
func (l *Log) Append(ctx context.Context, rec ir.ActionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("append: record has no ID")
	}
	if rec.Type != ir.RecordInvocation && rec.Type != ir.RecordCompletion {
		return fmt.Errorf("append: unknown record type %q", rec.Type)
	}

	inputJSON, err := marshalFields(rec.Input)
	if err != nil {
		return fmt.Errorf("append %s: input: %w", rec.ID, err)
	}
	outputJSON, err := marshalFields(rec.Output)
	if err != nil {
		return fmt.Errorf("append %s: output: %w", rec.ID, err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO records
		(id, type, concept, action, flow_id, parent, sync, input, output, variant, seq, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		string(rec.Type),
		rec.Concept,
		rec.Action,
		rec.FlowID,
		nullable(rec.Parent),
		nullable(rec.Sync),
		inputJSON,
		outputJSON,
		nullable(rec.Variant),
		rec.Seq,
		rec.TS,
	)
	if err != nil {
		return fmt.Errorf("append %s: %w", rec.ID, err)
	}
	return nil
}

// nullable maps "" to NULL so optional columns stay NULL in the table.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
