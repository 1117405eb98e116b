// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/elearning-storefront/internal/domain/enrollment"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger logrus.FieldLogger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("Running database auto-migrations")

	// Parents before children
	models := []interface{}{
		&enrollment.Enrollment{},
		&enrollment.EnrolledCourse{},
	}

	for _, model := range models {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates the indexes the enrollment queries rely on
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_enrollments_user_created ON enrollments(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_enrolled_courses_course ON enrolled_courses(course_id, enrollment_id)",
	}

	for _, index := range indexes {
		if err := m.db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	m.logger.WithField("count", len(indexes)).Info("Database indexes ensured")
	return nil
}
