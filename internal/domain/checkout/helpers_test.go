package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/your-org/elearning-storefront/internal/domain/cart"
	"github.com/your-org/elearning-storefront/internal/domain/enrollment"
	"github.com/your-org/elearning-storefront/internal/domain/payment"
	"github.com/your-org/elearning-storefront/internal/pkg/email"
	"github.com/your-org/elearning-storefront/internal/pkg/logger"
)

type fakeOrders struct {
	mu         sync.Mutex
	createFn   func(req payment.CreateOrderRequest) (*payment.OrderResult, error)
	enrollFn   func(req payment.EnrollNowRequest) (*payment.OrderResult, error)
	completeFn func(req payment.CompletePaymentRequest) (*payment.PaymentResult, error)
	creates    []payment.CreateOrderRequest
	enrolls    []payment.EnrollNowRequest
	completes  []payment.CompletePaymentRequest
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		createFn: func(payment.CreateOrderRequest) (*payment.OrderResult, error) {
			return &payment.OrderResult{PaymentID: "p1"}, nil
		},
		enrollFn: func(payment.EnrollNowRequest) (*payment.OrderResult, error) {
			return &payment.OrderResult{PaymentID: "p42", TotalAmount: decimal.NewFromInt(30)}, nil
		},
		completeFn: func(payment.CompletePaymentRequest) (*payment.PaymentResult, error) {
			return &payment.PaymentResult{Success: true, TransactionRef: "TX-1"}, nil
		},
	}
}

func (f *fakeOrders) CreateOrder(_ context.Context, req payment.CreateOrderRequest) (*payment.OrderResult, error) {
	f.mu.Lock()
	f.creates = append(f.creates, req)
	fn := f.createFn
	f.mu.Unlock()
	return fn(req)
}

func (f *fakeOrders) EnrollNow(_ context.Context, req payment.EnrollNowRequest) (*payment.OrderResult, error) {
	f.mu.Lock()
	f.enrolls = append(f.enrolls, req)
	fn := f.enrollFn
	f.mu.Unlock()
	return fn(req)
}

func (f *fakeOrders) CompletePayment(_ context.Context, req payment.CompletePaymentRequest) (*payment.PaymentResult, error) {
	f.mu.Lock()
	f.completes = append(f.completes, req)
	fn := f.completeFn
	f.mu.Unlock()
	return fn(req)
}

func (f *fakeOrders) calls() (creates, enrolls, completes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates), len(f.enrolls), len(f.completes)
}

type fakeVerifier struct {
	mu       sync.Mutex
	verified bool
	err      error
	checks   []string
}

func (f *fakeVerifier) Verify(_ context.Context, paymentID string) (payment.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks = append(f.checks, paymentID)
	if f.err != nil {
		return payment.Verification{}, f.err
	}
	return payment.Verification{Verified: f.verified}, nil
}

func (f *fakeVerifier) set(verified bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = verified
	f.err = err
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []*enrollment.Enrollment
	ctxErrs []error
}

func (f *fakeRecorder) Record(ctx context.Context, e *enrollment.Enrollment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, e)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []email.EnrollmentReceiptData
}

func (f *fakeMailer) SendEnrollmentReceipt(_ context.Context, data email.EnrollmentReceiptData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return nil
}

// recorder collects feedback and navigation the way a client would render them
type recorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
	infos     []string
	paths     []string
}

func (r *recorder) add(list *[]string, v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*list = append(*list, v)
}

func (r *recorder) Success(m string) { r.add(&r.successes, m) }
func (r *recorder) Error(m string)   { r.add(&r.errors, m) }
func (r *recorder) Info(m string)    { r.add(&r.infos, m) }
func (r *recorder) GoTo(p string)    { r.add(&r.paths, p) }

type fixture struct {
	orders   *fakeOrders
	verifier *fakeVerifier
	records  *fakeRecorder
	mailer   *fakeMailer
	orch     *Orchestrator
	cart     *cart.Store
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithOptions(t, Options{})
}

func newFixtureWithOptions(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		orders:   newFakeOrders(),
		verifier: &fakeVerifier{},
		records:  &fakeRecorder{},
		mailer:   &fakeMailer{},
		cart:     cart.NewStore(cart.NewMemoryStorage(), cart.DefaultStorageKey, logger.Discard()),
	}
	f.cart.Load()
	f.orch = NewOrchestrator(f.orders, f.verifier, f.records, f.mailer, opts, logger.Discard())
	f.orch.async = func(fn func()) { fn() }
	return f
}

func (f *fixture) addCourse(id int64, price string) {
	f.cart.Add(cart.CartItem{ID: id, Title: "Course", Price: decimal.RequireFromString(price)})
}

func signedIn(r *recorder) UI {
	return UI{
		Auth: AuthContext{
			IsAuthenticated: true,
			User: User{
				ID:       "user-1",
				Email:    "ann@example.com",
				FullName: "Ann Marie Lee",
				Phone:    "555-0100",
			},
		},
		Feedback:  r,
		Navigator: r,
	}
}

func anonymous(r *recorder) UI {
	return UI{Feedback: r, Navigator: r}
}
