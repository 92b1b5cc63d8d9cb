package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/enums"
	"github.com/oddspool/oddspool-backend/pkg/logger"
	"github.com/oddspool/oddspool-backend/pkg/metrics"
)

const savepointName = "activity_log"

// Service records user-facing audit entries.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.ActivityLog, error)
	RecordBestEffort(ctx context.Context, tx *gorm.DB, input RecordInput) bool
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ActivityLog, error)
}

// RecordInput captures a single audit entry. Metadata is stored as JSON.
type RecordInput struct {
	UserID   uuid.UUID
	Action   enums.ActivityAction
	Metadata any
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.StakeMetrics
}

// NewService wires an activity service with the provided repository.
func NewService(repo Repository, logg *logger.Logger, m *metrics.StakeMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("activity repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg, metrics: m}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.ActivityLog, error) {
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if !input.Action.IsValid() {
		return nil, fmt.Errorf("invalid activity action %q", input.Action)
	}

	var metadata json.RawMessage
	if input.Metadata != nil {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode activity metadata: %w", err)
		}
		metadata = raw
	}

	entry := &models.ActivityLog{
		UserID:   input.UserID,
		Action:   input.Action,
		Metadata: metadata,
	}
	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordBestEffort writes the entry inside a savepoint of tx. A failure rolls
// back only the savepoint, is logged and counted, and never fails the caller.
func (s *service) RecordBestEffort(ctx context.Context, tx *gorm.DB, input RecordInput) bool {
	if tx == nil {
		if _, err := s.Record(ctx, nil, input); err != nil {
			s.fail(ctx, input, err)
			return false
		}
		return true
	}

	if err := tx.SavePoint(savepointName).Error; err != nil {
		s.fail(ctx, input, err)
		return false
	}
	if _, err := s.Record(ctx, tx, input); err != nil {
		if rbErr := tx.RollbackTo(savepointName).Error; rbErr != nil {
			s.logg.Error(ctx, "activity savepoint rollback failed", rbErr)
		}
		s.fail(ctx, input, err)
		return false
	}
	return true
}

func (s *service) fail(ctx context.Context, input RecordInput, err error) {
	s.metrics.IncActivityFailure()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id": input.UserID.String(),
		"action":  string(input.Action),
	})
	s.logg.Error(ctx, "activity log write failed", err)
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	return s.repo.ListByUserID(ctx, userID, limit)
}
