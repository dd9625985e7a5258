package cvedb

import (
	"context"
	"database/sql"
	"strings"

	"golang.org/x/xerrors"

	"CVECatalog/internal/model"
)

// SetStatus 追加一条状态历史并覆盖当前状态
func (cd *CVEDatabase) SetStatus(ctx context.Context, cveID, status, note string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return &model.ValidationError{Field: "status", Value: status, Reason: "must not be empty"}
	}

	err := cd.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := cveExists(ctx, tx, cveID)
		if err != nil {
			return err
		}
		if !exists {
			return xerrors.Errorf("%s: %w", cveID, ErrNotFound)
		}
		return appendStatus(ctx, tx, cveID, status, note)
	})
	if err != nil {
		return err
	}

	cd.logger.Info("%s 状态更新为 %s", cveID, status)
	return nil
}

func appendStatus(ctx context.Context, q querier, cveID, status, note string) error {
	var noteArg interface{}
	if note != "" {
		noteArg = note
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO status_history (cve_id, status, note) VALUES (?, ?, ?)`,
		cveID, status, noteArg,
	); err != nil {
		return xerrors.Errorf("failed to append status history for %s: %w", cveID, err)
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE cve SET status = ? WHERE cve_id = ?`,
		status, cveID,
	); err != nil {
		return xerrors.Errorf("failed to update status for %s: %w", cveID, err)
	}
	return nil
}

// History 按时间顺序返回状态历史
func (cd *CVEDatabase) History(ctx context.Context, cveID string) ([]model.StatusHistory, error) {
	return history(ctx, cd.db, cveID)
}

func history(ctx context.Context, q querier, cveID string) ([]model.StatusHistory, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, cve_id, status, note, changed_at
		FROM status_history
		WHERE cve_id = ?
		ORDER BY changed_at, id`, cveID)
	if err != nil {
		return nil, xerrors.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var entries []model.StatusHistory
	for rows.Next() {
		var h model.StatusHistory
		var note sql.NullString
		if err := rows.Scan(&h.ID, &h.CVEID, &h.Status, &note, &h.ChangedAt); err != nil {
			return nil, xerrors.Errorf("failed to scan status history: %w", err)
		}
		h.Note = nullString(note)
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
