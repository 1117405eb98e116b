// internal/interfaces/http/handlers/enrollment.go
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/elearning-storefront/internal/domain/enrollment"
	"github.com/your-org/elearning-storefront/internal/interfaces/http/middleware"
	"github.com/your-org/elearning-storefront/internal/pkg/apperror"
)

// EnrollmentReader is the read side of the enrollment service
type EnrollmentReader interface {
	GetByTransactionRef(ctx context.Context, ref string) (*enrollment.Enrollment, error)
	ListForUser(ctx context.Context, userID string, page, limit int) ([]enrollment.Enrollment, int64, error)
}

// ReceiptRenderer renders a receipt document
type ReceiptRenderer interface {
	GenerateReceipt(e *enrollment.Enrollment) (*bytes.Buffer, error)
}

// EnrollmentHandler handles enrollment history and receipts
type EnrollmentHandler struct {
	enrollments EnrollmentReader
	receipts    ReceiptRenderer
	logger      logrus.FieldLogger
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(enrollments EnrollmentReader, receipts ReceiptRenderer, logger logrus.FieldLogger) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollments: enrollments,
		receipts:    receipts,
		logger:      logger.WithField("handler", "enrollment"),
	}
}

// ListEnrollments handles GET /enrollments
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	enrollments, total, err := h.enrollments.ListForUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list enrollments")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve enrollments",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Enrollments retrieved successfully",
		"data": gin.H{
			"enrollments": enrollments,
			"total":       total,
			"page":        page,
			"limit":       limit,
		},
	})
}

// DownloadReceipt handles GET /enrollments/:ref/receipt.pdf
func (h *EnrollmentHandler) DownloadReceipt(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	e, err := h.enrollments.GetByTransactionRef(c.Request.Context(), c.Param("ref"))
	if err == nil && e.UserID != userID {
		err = apperror.NotFound("Enrollment not found")
	}
	if err != nil {
		respondError(c, err)
		return
	}

	pdfBuffer, err := h.receipts.GenerateReceipt(e)
	if err != nil {
		h.logger.WithError(err).WithField("transaction_ref", e.TransactionRef).Error("Failed to generate receipt")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate receipt",
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%s.pdf", e.TransactionRef))
	c.Data(http.StatusOK, "application/pdf", pdfBuffer.Bytes())
}
