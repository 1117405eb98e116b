package postgres

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/elearning-storefront/internal/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestCreateIndexes(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_enrollments_user_created")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_enrolled_courses_course")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewMigration(db, logger.Discard()).CreateIndexes())
	assert.NoError(t, mock.ExpectationsWereMet())
}
