// internal/domain/checkout/orchestrator.go
package checkout

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/elearning-storefront/internal/config"
	"github.com/your-org/elearning-storefront/internal/domain/cart"
	"github.com/your-org/elearning-storefront/internal/domain/enrollment"
	"github.com/your-org/elearning-storefront/internal/domain/payment"
	"github.com/your-org/elearning-storefront/internal/pkg/apperror"
	"github.com/your-org/elearning-storefront/internal/pkg/email"
)

// OrderService is the external Order/Payment service
type OrderService interface {
	CreateOrder(ctx context.Context, req payment.CreateOrderRequest) (*payment.OrderResult, error)
	EnrollNow(ctx context.Context, req payment.EnrollNowRequest) (*payment.OrderResult, error)
	CompletePayment(ctx context.Context, req payment.CompletePaymentRequest) (*payment.PaymentResult, error)
}

// PaymentVerifier checks whether a transfer has arrived
type PaymentVerifier interface {
	Verify(ctx context.Context, paymentID string) (payment.Verification, error)
}

// Recorder persists the receipt of a confirmed checkout
type Recorder interface {
	Record(ctx context.Context, e *enrollment.Enrollment) error
}

var _ Recorder = (*enrollment.Service)(nil)

// ReceiptMailer delivers the receipt to the shopper
type ReceiptMailer interface {
	SendEnrollmentReceipt(ctx context.Context, data email.EnrollmentReceiptData) error
}

// Cart is the part of the cart store a checkout reads and updates
type Cart interface {
	Snapshot() cart.Snapshot
	Remove(id int64) bool
}

// releaser is implemented by carts pinned for the life of a session
type releaser interface {
	Release()
}

var _ releaser = (*cart.Lease)(nil)

// Feedback receives user-visible messages. Calls are fire-and-forget.
type Feedback interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

// Navigator requests client-side navigation
type Navigator interface {
	GoTo(path string)
}

// User is the authenticated shopper profile
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// AuthContext is the shopper's authentication state for one request
type AuthContext struct {
	IsAuthenticated bool
	User            User
}

// UI bundles the per-request collaborators of a checkout operation
type UI struct {
	Auth      AuthContext
	Feedback  Feedback
	Navigator Navigator
}

type noopUI struct{}

func (noopUI) Success(string) {}
func (noopUI) Error(string)   {}
func (noopUI) Info(string)    {}
func (noopUI) GoTo(string)    {}

func (u UI) feedback() Feedback {
	if u.Feedback == nil {
		return noopUI{}
	}
	return u.Feedback
}

func (u UI) navigator() Navigator {
	if u.Navigator == nil {
		return noopUI{}
	}
	return u.Navigator
}

// Options are the checkout policy settings
type Options struct {
	Currency         string
	TransferCurrency string
	ExchangeRate     decimal.Decimal
	BankCode         string
	AccountNumber    string
	AccountName      string
	QRBaseURL        string
	LoginPath        string
	LearningPath     string
	SiteURL          string
}

// OptionsFromConfig builds Options from the checkout configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Currency:         cfg.Checkout.Currency,
		TransferCurrency: cfg.Checkout.TransferCurrency,
		ExchangeRate:     cfg.Checkout.ExchangeRate,
		BankCode:         cfg.Checkout.BankCode,
		AccountNumber:    cfg.Checkout.AccountNumber,
		AccountName:      cfg.Checkout.AccountName,
		QRBaseURL:        cfg.Checkout.QRBaseURL,
		LoginPath:        cfg.Checkout.LoginPath,
		LearningPath:     cfg.Checkout.LearningPath,
		SiteURL:          cfg.External.Email.SiteURL,
	}
}

// Orchestrator holds the collaborators shared by every checkout session
type Orchestrator struct {
	orders   OrderService
	verifier PaymentVerifier
	recorder Recorder
	mailer   ReceiptMailer
	opts     Options
	logger   logrus.FieldLogger
	now      func() time.Time
	// async runs receipt delivery off the request path
	async func(func())
}

// NewOrchestrator creates a new orchestrator. recorder and mailer may be nil.
func NewOrchestrator(orders OrderService, verifier PaymentVerifier, recorder Recorder, mailer ReceiptMailer, opts Options, logger logrus.FieldLogger) *Orchestrator {
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if opts.LearningPath == "" {
		opts.LearningPath = "/my-learning"
	}
	return &Orchestrator{
		orders:   orders,
		verifier: verifier,
		recorder: recorder,
		mailer:   mailer,
		opts:     opts,
		logger:   logger.WithField("component", "checkout"),
		now:      time.Now,
		async:    func(fn func()) { go fn() },
	}
}

// BeginRequest starts a checkout. CourseID is the raw navigation parameter
// and is required for enroll-now.
type BeginRequest struct {
	Mode     Mode   `json:"mode"`
	CourseID string `json:"course_id"`
}

// Begin creates a checkout session for the given entry mode. Cart mode starts
// in review; enroll-now goes straight to payment selection.
func (o *Orchestrator) Begin(ui UI, req BeginRequest, c Cart) (*Session, error) {
	s := &Session{
		orch:    o,
		id:      uuid.NewString(),
		mode:    req.Mode,
		cart:    c,
		billing: BillingFromUser(ui.Auth.User),
	}

	switch req.Mode {
	case ModeCart:
		if c == nil || c.Snapshot().Count == 0 {
			return nil, apperror.Validation("Your cart is empty")
		}
		s.state = reviewingCart{}
	case ModeEnrollNow:
		courseID, err := strconv.ParseInt(strings.TrimSpace(req.CourseID), 10, 64)
		if err != nil || courseID <= 0 {
			return nil, apperror.Validation("A valid course is required to enroll")
		}
		s.courseID = courseID
		s.state = selectingPayment{}
	default:
		return nil, apperror.Validation("Unknown checkout mode")
	}

	s.logger = o.logger.WithFields(logrus.Fields{
		"checkout_id": s.id,
		"mode":        s.mode,
	})
	s.touch()
	s.logger.WithField("step", s.state.step()).Info("Checkout started")

	return s, nil
}

// BillingFromUser derives billing details from the shopper profile
func BillingFromUser(u User) payment.BillingInfo {
	info := payment.BillingInfo{
		Email: strings.TrimSpace(u.Email),
		Phone: strings.TrimSpace(u.Phone),
	}
	parts := strings.Fields(u.FullName)
	if len(parts) > 0 {
		info.FirstName = parts[0]
		info.LastName = strings.Join(parts[1:], " ")
	}
	return info
}

func (o *Orchestrator) receiptFor(s *Session, ui UI, intent payment.PaymentIntent, ref string, items []cart.CartItem) *enrollment.Enrollment {
	e := &enrollment.Enrollment{
		UserID:         ui.Auth.User.ID,
		TransactionRef: ref,
		PaymentID:      intent.PaymentID,
		Mode:           string(s.mode),
		PaymentMethod:  string(intent.PaymentMethod),
		Amount:         intent.TotalAmount,
		Currency:       intent.Currency,
		Email:          s.billing.Email,
		FullName:       s.billing.FullName(),
		CreatedAt:      o.now(),
	}
	if s.mode == ModeEnrollNow {
		e.Courses = []enrollment.EnrolledCourse{{CourseID: s.courseID, Price: intent.TotalAmount}}
		return e
	}
	for _, item := range items {
		e.Courses = append(e.Courses, enrollment.EnrolledCourse{
			CourseID: item.ID,
			Title:    item.Title,
			Price:    item.Price,
		})
	}
	return e
}

// deliverReceipt records and mails a confirmed checkout. Both are best effort.
// The record is written even if the caller's context has been cancelled.
func (o *Orchestrator) deliverReceipt(ctx context.Context, receipt *enrollment.Enrollment, log logrus.FieldLogger) {
	if o.recorder != nil {
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		err := o.recorder.Record(recordCtx, receipt)
		cancel()
		if err != nil {
			log.WithError(err).Error("Failed to record enrollment")
		}
	}

	if o.mailer == nil || receipt.Email == "" {
		return
	}

	data := email.EnrollmentReceiptData{
		EmailTemplateData: email.EmailTemplateData{
			UserName:  receipt.FullName,
			UserEmail: receipt.Email,
		},
		TransactionRef: receipt.TransactionRef,
		PaymentMethod:  receipt.PaymentMethod,
		Amount:         receipt.Amount.StringFixed(2),
		Currency:       receipt.Currency,
		EnrolledAt:     receipt.CreatedAt.Format("January 2, 2006"),
		LearningURL:    strings.TrimRight(o.opts.SiteURL, "/") + o.opts.LearningPath,
	}
	for _, c := range receipt.Courses {
		line := email.ReceiptCourse{Title: c.Title}
		if line.Title == "" {
			line.Title = fmt.Sprintf("Course #%d", c.CourseID)
		}
		if !c.Price.IsZero() {
			line.Price = c.Price.StringFixed(2)
		}
		data.Courses = append(data.Courses, line)
	}

	o.async(func() {
		mailCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := o.mailer.SendEnrollmentReceipt(mailCtx, data); err != nil {
			log.WithError(err).Warn("Failed to send enrollment receipt")
		}
	})
}
