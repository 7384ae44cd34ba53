package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"marketplace_go/internal/domain"
)

// DeletionService owns the rate-limited, audited delete flow and the
// anomaly monitoring built on top of it. Quota days are UTC calendar days.
type DeletionService struct {
	deletions  domain.DeletionRepository
	monitoring domain.MonitoringRepository
	log        *zap.Logger

	dailyLimit      int
	windowDays      int
	threshold       int
	minReasonLength int

	now func() time.Time
}

func NewDeletionService(
	deletions domain.DeletionRepository,
	monitoring domain.MonitoringRepository,
	log *zap.Logger,
	dailyLimit, windowDays, threshold, minReasonLength int,
) *DeletionService {
	return &DeletionService{
		deletions:       deletions,
		monitoring:      monitoring,
		log:             log,
		dailyLimit:      dailyLimit,
		windowDays:      windowDays,
		threshold:       threshold,
		minReasonLength: minReasonLength,
		now:             time.Now,
	}
}

// DeleteOwnService deletes one of the actor's own listings, consuming a
// daily quota slot. A missing or foreign listing is rejected before the
// quota is touched.
func (s *DeletionService) DeleteOwnService(ctx context.Context, actorID, serviceID int64, reason string) (*domain.DeleteServiceResult, error) {
	reason, err := s.validReason(reason)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	res, err := s.deletions.DeleteService(ctx, domain.DeleteServiceRequest{
		ServiceID:    serviceID,
		ActorID:      actorID,
		ActorRole:    domain.RoleUser,
		Reason:       reason,
		Now:          now,
		Day:          now.Format("2006-01-02"),
		WindowStart:  now.AddDate(0, 0, -s.windowDays),
		EnforceQuota: true,
		RequireOwner: true,
		DailyLimit:   s.dailyLimit,
	})
	if err != nil {
		return nil, err
	}

	s.checkAnomaly(ctx, res)
	return res, nil
}

// AdminDeleteService removes any listing without touching the owner's
// quota. The deletion still lands in the audit trail and still counts
// toward the owner's anomaly window.
func (s *DeletionService) AdminDeleteService(ctx context.Context, adminID, serviceID int64, reason string) (*domain.DeleteServiceResult, error) {
	reason, err := s.validReason(reason)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	res, err := s.deletions.DeleteService(ctx, domain.DeleteServiceRequest{
		ServiceID:    serviceID,
		ActorID:      adminID,
		ActorRole:    domain.RoleAdmin,
		Reason:       reason,
		Now:          now,
		Day:          now.Format("2006-01-02"),
		WindowStart:  now.AddDate(0, 0, -s.windowDays),
		EnforceQuota: false,
		RequireOwner: false,
		DailyLimit:   s.dailyLimit,
	})
	if err != nil {
		return nil, err
	}

	s.checkAnomaly(ctx, res)
	return res, nil
}

func (s *DeletionService) validReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < s.minReasonLength {
		return "", domain.ErrReasonTooShort
	}
	return reason, nil
}

// checkAnomaly raises a monitoring flag when the owner's trailing-window
// deletion count exceeds the threshold. The delete has already committed;
// a failed flag write is logged but never surfaced.
func (s *DeletionService) checkAnomaly(ctx context.Context, res *domain.DeleteServiceResult) {
	if res.RecentCount <= s.threshold {
		return
	}
	ownerID := res.Record.OwnerID
	reason := fmt.Sprintf("Deleted %d services in the last %d days", res.RecentCount, s.windowDays)
	if err := s.monitoring.RaiseFlag(ctx, ownerID, res.RecentCount, reason, res.Record.DeletedAt); err != nil {
		s.log.Error("failed to raise monitoring flag",
			zap.Int64("user_id", ownerID),
			zap.Int("recent_count", res.RecentCount),
			zap.Error(err))
		return
	}
	s.log.Warn("user flagged for deletion anomaly",
		zap.Int64("user_id", ownerID),
		zap.Int("recent_count", res.RecentCount))
}

// Limits reports the actor's remaining daily allowance. Storage failures
// degrade to a full quota so the delete UI never hard-fails on a read.
func (s *DeletionService) Limits(ctx context.Context, userID int64) *domain.DeletionQuota {
	day := s.now().UTC().Format("2006-01-02")
	q, err := s.deletions.GetQuota(ctx, userID, day, s.dailyLimit)
	if err != nil {
		s.log.Warn("failed to load delete limits, returning defaults",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return &domain.DeletionQuota{DailyLimit: s.dailyLimit, Remaining: s.dailyLimit}
	}
	return q
}

// AuditLog returns every deletion record, newest first.
func (s *DeletionService) AuditLog(ctx context.Context) ([]*domain.DeletionRecord, error) {
	return s.deletions.ListRecords(ctx)
}

// FlaggedUsers returns the unreviewed flags with each user's recent
// deletion history attached.
func (s *DeletionService) FlaggedUsers(ctx context.Context) ([]*domain.FlaggedUser, error) {
	flags, err := s.monitoring.ListFlagged(ctx)
	if err != nil {
		return nil, fmt.Errorf("list flagged: %w", err)
	}

	res := make([]*domain.FlaggedUser, 0, len(flags))
	for _, f := range flags {
		history, err := s.deletions.ListRecordsForOwner(ctx, f.UserID, 10)
		if err != nil {
			return nil, fmt.Errorf("load delete history: %w", err)
		}
		res = append(res, &domain.FlaggedUser{Flag: f, DeleteHistory: history})
	}
	return res, nil
}

// ReviewFlaggedUser records an admin's verdict. The action "clear_flag"
// also lowers the flag; any other action leaves it raised but reviewed.
func (s *DeletionService) ReviewFlaggedUser(ctx context.Context, userID int64, action, notes string) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return fmt.Errorf("action is required: %w", domain.ErrInvalidInput)
	}
	return s.monitoring.Review(ctx, userID, action, notes, s.now().UTC())
}
