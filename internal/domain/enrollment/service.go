// internal/domain/enrollment/service.go
package enrollment

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/elearning-storefront/internal/pkg/apperror"
	"gorm.io/gorm"
)

// Service handles enrollment receipts
type Service struct {
	db *gorm.DB
}

// NewService creates a new enrollment service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Record stores a confirmed checkout together with its courses
func (s *Service) Record(ctx context.Context, e *Enrollment) error {
	if e.TransactionRef == "" {
		return apperror.Validation("transaction reference is required")
	}
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("failed to record enrollment: %w", err)
	}
	return nil
}

// GetByTransactionRef returns the enrollment for a receipt identifier
func (s *Service) GetByTransactionRef(ctx context.Context, ref string) (*Enrollment, error) {
	var e Enrollment
	err := s.db.WithContext(ctx).
		Preload("Courses").
		Where("transaction_ref = ?", ref).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("Enrollment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve enrollment: %w", err)
	}
	return &e, nil
}

// ListForUser returns a page of the user's enrollments, newest first
func (s *Service) ListForUser(ctx context.Context, userID string, page, limit int) ([]Enrollment, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&Enrollment{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count enrollments: %w", err)
	}

	enrollments := []Enrollment{}
	if total == 0 {
		return enrollments, 0, nil
	}

	err := s.db.WithContext(ctx).
		Preload("Courses").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&enrollments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list enrollments: %w", err)
	}

	return enrollments, total, nil
}
