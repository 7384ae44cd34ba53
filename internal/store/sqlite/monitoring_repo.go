package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marketplace_go/internal/domain"
)

type MonitoringRepo struct {
	db *sql.DB
}

func NewMonitoringRepo(db *sql.DB) *MonitoringRepo {
	return &MonitoringRepo{db: db}
}

var _ domain.MonitoringRepository = (*MonitoringRepo)(nil)

// RaiseFlag upserts the user's monitoring entry. A previously reviewed
// flag is re-raised: reviewed flips back to false and the new reason is
// appended to the existing one.
func (r *MonitoringRepo) RaiseFlag(ctx context.Context, userID int64, deleteCount int, reason string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO user_delete_monitoring
			(user_id, username, email, delete_count_last_7_days, is_flagged, flagged_reason, flagged_at, reviewed)
		SELECT u.id, u.username, u.email, ?2, 1, ?3, ?4, 0
		FROM users u WHERE u.id = ?1
		ON CONFLICT (user_id) DO UPDATE SET
			delete_count_last_7_days = excluded.delete_count_last_7_days,
			is_flagged = 1,
			flagged_reason = CASE
				WHEN user_delete_monitoring.flagged_reason = '' THEN excluded.flagged_reason
				ELSE user_delete_monitoring.flagged_reason || ' | ' || excluded.flagged_reason
			END,
			flagged_at = excluded.flagged_at,
			reviewed = 0
	`, userID, deleteCount, reason, at)
	if err != nil {
		return fmt.Errorf("raise flag: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MonitoringRepo) GetByUserID(ctx context.Context, userID int64) (*domain.MonitoringFlag, error) {
	f := &domain.MonitoringFlag{}
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, username, email, delete_count_last_7_days, is_flagged,
		       flagged_reason, flagged_at, reviewed, reviewed_at, review_notes, admin_action
		FROM user_delete_monitoring WHERE user_id = ?
	`, userID).Scan(
		&f.UserID, &f.Username, &f.Email, &f.DeleteCount7d, &f.IsFlagged,
		&f.FlaggedReason, &f.FlaggedAt, &f.Reviewed, &f.ReviewedAt, &f.ReviewNotes, &f.AdminAction,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get monitoring flag: %w", err)
	}
	return f, nil
}

func (r *MonitoringRepo) ListFlagged(ctx context.Context) ([]*domain.MonitoringFlag, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, username, email, delete_count_last_7_days, is_flagged,
		       flagged_reason, flagged_at, reviewed, reviewed_at, review_notes, admin_action
		FROM user_delete_monitoring
		WHERE is_flagged = 1 AND reviewed = 0
		ORDER BY flagged_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list flagged users: %w", err)
	}
	defer rows.Close()

	var res []*domain.MonitoringFlag
	for rows.Next() {
		f := &domain.MonitoringFlag{}
		if err := rows.Scan(
			&f.UserID, &f.Username, &f.Email, &f.DeleteCount7d, &f.IsFlagged,
			&f.FlaggedReason, &f.FlaggedAt, &f.Reviewed, &f.ReviewedAt, &f.ReviewNotes, &f.AdminAction,
		); err != nil {
			return nil, fmt.Errorf("scan monitoring flag: %w", err)
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

func (r *MonitoringRepo) Review(ctx context.Context, userID int64, action, notes string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_delete_monitoring
		SET reviewed = 1,
		    reviewed_at = ?2,
		    review_notes = ?3,
		    admin_action = ?4,
		    is_flagged = CASE WHEN ?4 = 'clear_flag' THEN 0 ELSE is_flagged END
		WHERE user_id = ?1
	`, userID, at, notes, action)
	if err != nil {
		return fmt.Errorf("review flag: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
