package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace_go/internal/domain"
)

type DeletionRepo struct {
	db *sql.DB
}

func NewDeletionRepo(db *sql.DB) *DeletionRepo {
	return &DeletionRepo{db: db}
}

var _ domain.DeletionRepository = (*DeletionRepo)(nil)

// DeleteService runs the whole delete in one transaction: ownership check,
// atomic quota consume, listing delete, audit insert, trailing-window
// count. Any failure rolls everything back, so a rejected delete never
// burns a quota slot and an accepted one is always audited.
func (r *DeletionRepo) DeleteService(ctx context.Context, req domain.DeleteServiceRequest) (*domain.DeleteServiceResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		ownerID int64
		title   string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, title FROM services WHERE id = ?
	`, req.ServiceID).Scan(&ownerID, &title)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup service: %w", err)
	}
	if req.RequireOwner && ownerID != req.ActorID {
		return nil, domain.ErrForbidden
	}

	remaining := req.DailyLimit
	if req.EnforceQuota {
		// Single conditional upsert: the WHERE clause rejects the update
		// when today's count is already at the limit, so check and
		// increment happen in one atomic statement.
		var used int
		err = tx.QueryRowContext(ctx, `
			INSERT INTO user_delete_limits (user_id, daily_delete_count, last_delete_date)
			VALUES (?1, 1, ?2)
			ON CONFLICT (user_id) DO UPDATE SET
				daily_delete_count = CASE
					WHEN user_delete_limits.last_delete_date = excluded.last_delete_date
					THEN user_delete_limits.daily_delete_count + 1
					ELSE 1
				END,
				last_delete_date = excluded.last_delete_date
			WHERE user_delete_limits.last_delete_date IS NOT excluded.last_delete_date
			   OR user_delete_limits.daily_delete_count < ?3
			RETURNING daily_delete_count
		`, req.ActorID, req.Day, req.DailyLimit).Scan(&used)
		if err == sql.ErrNoRows {
			return nil, domain.ErrQuotaExceeded
		}
		if err != nil {
			return nil, fmt.Errorf("consume quota: %w", err)
		}
		remaining = req.DailyLimit - used
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM services WHERE id = ?`, req.ServiceID); err != nil {
		return nil, fmt.Errorf("delete service: %w", err)
	}

	rec := &domain.DeletionRecord{
		ServiceID:     req.ServiceID,
		ServiceTitle:  title,
		OwnerID:       ownerID,
		DeletedBy:     req.ActorID,
		DeletedByRole: req.ActorRole,
		Reason:        req.Reason,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO deleted_services
			(service_id, service_title, service_owner_id, deleted_by, deleted_by_role, reason, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id, deleted_at
	`, rec.ServiceID, rec.ServiceTitle, rec.OwnerID, rec.DeletedBy, rec.DeletedByRole, rec.Reason, req.Now,
	).Scan(&rec.ID, &rec.DeletedAt)
	if err != nil {
		return nil, fmt.Errorf("insert deletion record: %w", err)
	}

	var recent int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM deleted_services
		WHERE service_owner_id = ? AND deleted_at >= ?
	`, ownerID, req.WindowStart).Scan(&recent)
	if err != nil {
		return nil, fmt.Errorf("count recent deletions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete: %w", err)
	}

	return &domain.DeleteServiceResult{
		Record:      rec,
		Remaining:   remaining,
		RecentCount: recent,
	}, nil
}

func (r *DeletionRepo) GetQuota(ctx context.Context, userID int64, day string, limit int) (*domain.DeletionQuota, error) {
	var (
		count    int
		lastDate sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT daily_delete_count, last_delete_date
		FROM user_delete_limits WHERE user_id = ?
	`, userID).Scan(&count, &lastDate)
	if err == sql.ErrNoRows {
		return &domain.DeletionQuota{DailyLimit: limit, Remaining: limit}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quota: %w", err)
	}

	q := &domain.DeletionQuota{DailyLimit: limit, Remaining: limit}
	if lastDate.Valid {
		q.LastDeleteDate = &lastDate.String
	}
	// Stored count only applies to the day it was written.
	if lastDate.Valid && lastDate.String == day {
		q.UsedToday = count
		q.Remaining = limit - count
		if q.Remaining < 0 {
			q.Remaining = 0
		}
	}
	return q, nil
}

func (r *DeletionRepo) ListRecords(ctx context.Context) ([]*domain.DeletionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, service_id, service_title, service_owner_id, deleted_by, deleted_by_role, reason, deleted_at
		FROM deleted_services
		ORDER BY deleted_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list deletion records: %w", err)
	}
	return scanDeletionRecords(rows)
}

func (r *DeletionRepo) ListRecordsForOwner(ctx context.Context, ownerID int64, limit int) ([]*domain.DeletionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, service_id, service_title, service_owner_id, deleted_by, deleted_by_role, reason, deleted_at
		FROM deleted_services
		WHERE service_owner_id = ?
		ORDER BY deleted_at DESC
		LIMIT ?
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list deletion records for owner: %w", err)
	}
	return scanDeletionRecords(rows)
}

func scanDeletionRecords(rows *sql.Rows) ([]*domain.DeletionRecord, error) {
	defer rows.Close()
	var res []*domain.DeletionRecord
	for rows.Next() {
		rec := &domain.DeletionRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.ServiceID, &rec.ServiceTitle, &rec.OwnerID,
			&rec.DeletedBy, &rec.DeletedByRole, &rec.Reason, &rec.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan deletion record: %w", err)
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
