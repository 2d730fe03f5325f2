package actionlog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/weftlabs/weft/internal/ir"
)

const recordColumns = `id, type, concept, action, flow_id, parent, sync, input, output, variant, seq, ts`

// FlowRecords returns every record of a flow, ordered by seq then id.
// Callers reconstruct causality from parent links; the ordering here is
// only a deterministic presentation order.
//
// Returns an empty slice (not nil) when the flow has no records.
func (l *Log) FlowRecords(ctx context.Context, flowID string) ([]ir.ActionRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE flow_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, flowID)
	if err != nil {
		return nil, fmt.Errorf("query flow %s: %w", flowID, err)
	}
	defer rows.Close()

	records := []ir.ActionRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flow %s: %w", flowID, err)
	}
	return records, nil
}

// Record retrieves a single record by ID.
// Returns sql.ErrNoRows if not found.
func (l *Log) Record(ctx context.Context, id string) (ir.ActionRecord, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE id = ?
	`, id)
	return scanRecordRow(row)
}

// Children returns the records whose parent is the given record ID,
// ordered by seq then id. For a completion these are the invocations it
// triggered; for an invocation, its resulting completion.
func (l *Log) Children(ctx context.Context, parentID string) ([]ir.ActionRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE parent = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("query children of %s: %w", parentID, err)
	}
	defer rows.Close()

	records := []ir.ActionRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children of %s: %w", parentID, err)
	}
	return records, nil
}

// HasSyncInvocation reports whether the flow already contains an invocation
// produced by the named sync. This is the persisted side of the
// at-most-once-per-flow firing guarantee.
func (l *Log) HasSyncInvocation(ctx context.Context, flowID, syncName string) (bool, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM records
		WHERE flow_id = ? AND sync = ? AND type = 'invocation'
	`, flowID, syncName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check sync firing: %w", err)
	}
	return count > 0, nil
}

// scanner abstracts sql.Row and sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (ir.ActionRecord, error) {
	var (
		rec                   ir.ActionRecord
		typ                   string
		parent, sync, variant sql.NullString
		input, output         string
	)

	err := s.Scan(
		&rec.ID, &typ, &rec.Concept, &rec.Action, &rec.FlowID,
		&parent, &sync, &input, &output, &variant, &rec.Seq, &rec.TS,
	)
	if err != nil {
		return ir.ActionRecord{}, fmt.Errorf("scan record: %w", err)
	}

	rec.Type = ir.RecordType(typ)
	rec.Parent = parent.String
	rec.Sync = sync.String
	rec.Variant = variant.String

	if rec.Input, err = unmarshalFields(input); err != nil {
		return ir.ActionRecord{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	if rec.Output, err = unmarshalFields(output); err != nil {
		return ir.ActionRecord{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	return rec, nil
}

func scanRecordRow(row *sql.Row) (ir.ActionRecord, error) {
	rec, err := scanRecord(row)
	if err != nil {
		// Preserve sql.ErrNoRows for callers that branch on it.
		return ir.ActionRecord{}, err
	}
	return rec, nil
}
