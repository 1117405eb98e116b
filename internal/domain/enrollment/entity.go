// internal/domain/enrollment/entity.go
package enrollment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Enrollment is the persisted receipt of a confirmed checkout
type Enrollment struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	UserID         string           `gorm:"not null;index" json:"user_id"`
	TransactionRef string           `gorm:"not null;uniqueIndex" json:"transaction_ref"`
	PaymentID      string           `gorm:"index" json:"payment_id"`
	Mode           string           `gorm:"not null" json:"mode"`
	PaymentMethod  string           `gorm:"not null" json:"payment_method"`
	Amount         decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency       string           `gorm:"size:3;not null" json:"currency"`
	Email          string           `json:"email"`
	FullName       string           `json:"full_name"`
	Courses        []EnrolledCourse `gorm:"foreignKey:EnrollmentID" json:"courses"`
	CreatedAt      time.Time        `json:"created_at"`
}

// TableName overrides the table name
func (Enrollment) TableName() string {
	return "enrollments"
}

// EnrolledCourse is one course granted by an enrollment
type EnrolledCourse struct {
	ID           uint            `gorm:"primaryKey" json:"-"`
	EnrollmentID uint            `gorm:"not null;index" json:"-"`
	CourseID     int64           `gorm:"not null;index" json:"course_id"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `gorm:"type:numeric(14,2)" json:"price"`
}

// TableName overrides the table name
func (EnrolledCourse) TableName() string {
	return "enrolled_courses"
}

// CourseIDs returns the ids of the enrolled courses
func (e *Enrollment) CourseIDs() []int64 {
	ids := make([]int64, len(e.Courses))
	for i, c := range e.Courses {
		ids[i] = c.CourseID
	}
	return ids
}
