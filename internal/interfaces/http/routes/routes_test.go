package routes

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/elearning-storefront/internal/config"
	"github.com/your-org/elearning-storefront/internal/domain/cart"
	"github.com/your-org/elearning-storefront/internal/domain/checkout"
	"github.com/your-org/elearning-storefront/internal/domain/payment"
	"github.com/your-org/elearning-storefront/internal/interfaces/http/handlers"
	"github.com/your-org/elearning-storefront/internal/interfaces/http/middleware"
	"github.com/your-org/elearning-storefront/internal/pkg/auth"
	"github.com/your-org/elearning-storefront/internal/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// upstream fakes the Order/Payment service
type upstream struct {
	mu          sync.Mutex
	verified    bool
	orderStatus int
	orderBody   string
	authHeaders []string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.authHeaders = append(u.authHeaders, r.Header.Get("Authorization"))

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/orders":
		status, body := u.orderStatus, u.orderBody
		if status == 0 {
			status, body = http.StatusOK, `{"success":true,"data":{"paymentId":"p1","orderId":"o1"}}`
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	case "/orders/enroll-now":
		_, _ = w.Write([]byte(`{"success":true,"data":{"paymentId":"p2","totalAmount":30}}`))
	case "/payments/complete":
		_, _ = w.Write([]byte(`{"success":true,"data":{"transactionRef":"TX-1"}}`))
	case "/payments/verify":
		if u.verified {
			_, _ = w.Write([]byte(`{"success":true,"data":{"verified":true,"status":"completed"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"verified":false,"status":"pending"}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (u *upstream) setVerified(v bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.verified = v
}

type env struct {
	router   *gin.Engine
	jwt      *auth.JWTManager
	carts    *cart.Registry
	upstream *upstream
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.Discard()
	up := &upstream{}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		App: config.AppConfig{Name: "storefront-test"},
		JWT: config.JWTConfig{Secret: "test-secret", AccessTokenExpiry: time.Hour},
	}
	jwtManager := auth.NewJWTManager(cfg)

	orders := payment.NewClient(config.OrderServiceConfig{
		BaseURL:             srv.URL,
		Timeout:             5 * time.Second,
		CreateOrderPath:     "/orders",
		EnrollNowPath:       "/orders/enroll-now",
		CompletePaymentPath: "/payments/complete",
		VerifyPaymentPath:   "/payments/verify",
	}, log)
	orch := checkout.NewOrchestrator(orders, payment.NewVerifier(orders, log), nil, nil, checkout.Options{}, log)

	carts := cart.NewRegistry(func(string) cart.Storage { return cart.NewMemoryStorage() }, cart.DefaultStorageKey, log)

	r := gin.New()
	SetupRoutes(r.Group("/api/v1"), Handlers{
		Cart:       handlers.NewCartHandler(carts, log),
		Checkout:   handlers.NewCheckoutHandler(checkout.NewManager(orch), carts, log),
		Enrollment: handlers.NewEnrollmentHandler(nil, nil, log),
	}, Options{JWT: jwtManager})

	return &env{router: r, jwt: jwtManager, carts: carts, upstream: up}
}

// shopper is one client identity: a guest session, optionally signed in
type shopper struct {
	sessionID string
	token     string
}

func guest() shopper {
	return shopper{sessionID: uuid.NewString()}
}

func (e *env) signedIn(t *testing.T, s shopper, userID string) shopper {
	token, err := e.jwt.GenerateAccessToken(auth.Profile{
		UserID:   userID,
		Email:    "ann@example.com",
		FullName: "Ann Lee",
	})
	require.NoError(t, err)
	s.token = token
	return s
}

func (e *env) do(t *testing.T, s shopper, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/api/v1"+path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.SessionHeader, s.sessionID)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type checkoutResponse struct {
	Data     checkout.Snapshot  `json:"data"`
	Messages []handlers.Message `json:"messages"`
	Redirect string             `json:"redirect"`
	Error    string             `json:"error"`
}

func decodeCheckout(t *testing.T, w *httptest.ResponseRecorder) checkoutResponse {
	t.Helper()
	var resp checkoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

type cartResponse struct {
	Data struct {
		Added bool          `json:"added"`
		Count int           `json:"count"`
		Cart  cart.Snapshot `json:"cart"`
	} `json:"data"`
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var resp cartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

const goCourse = `{"id":1,"title":"Go Basics","price":100000,"instructor":"Rob"}`

func TestCartEndpoints(t *testing.T) {
	e := newEnv(t)
	s := guest()

	w := e.do(t, s, http.MethodPost, "/cart/items", goCourse)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeCart(t, w).Data.Added)

	w = e.do(t, s, http.MethodPost, "/cart/items", goCourse)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeCart(t, w)
	assert.False(t, resp.Data.Added)
	assert.Equal(t, 1, resp.Data.Cart.Count)

	w = e.do(t, s, http.MethodGet, "/cart/count", "")
	assert.Equal(t, 1, decodeCart(t, w).Data.Count)

	w = e.do(t, s, http.MethodPost, "/cart/items", `{"id":0,"title":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, s, http.MethodDelete, "/cart/items/99", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeCart(t, w).Data.Cart.Count)

	w = e.do(t, s, http.MethodDelete, "/cart/items/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, s, http.MethodDelete, "/cart", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, e.carts.Get(cart.GuestOwner(s.sessionID)).Count())
}

func TestMergeGuestCartAfterLogin(t *testing.T) {
	e := newEnv(t)
	s := guest()
	e.do(t, s, http.MethodPost, "/cart/items", goCourse)

	w := e.do(t, s, http.MethodPost, "/cart/merge", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	s = e.signedIn(t, s, "u1")
	w = e.do(t, s, http.MethodPost, "/cart/merge", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Added int           `json:"added"`
			Cart  cart.Snapshot `json:"cart"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Added)
	assert.Equal(t, 1, resp.Data.Cart.Count)

	assert.Equal(t, 0, e.carts.Get(cart.GuestOwner(s.sessionID)).Count())
	assert.Equal(t, 1, e.carts.Get(cart.UserOwner("u1")).Count())
}

func TestGuestCheckoutIsSentToLogin(t *testing.T) {
	e := newEnv(t)
	s := guest()
	e.do(t, s, http.MethodPost, "/cart/items", goCourse)

	w := e.do(t, s, http.MethodPost, "/checkout", `{"mode":"cart"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeCheckout(t, w).Data.ID

	w = e.do(t, s, http.MethodPost, "/checkout/"+id+"/proceed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, checkout.StepSelectingPayment, decodeCheckout(t, w).Data.Step)

	w = e.do(t, s, http.MethodPost, "/checkout/"+id+"/submit", `{"payment_method":"card"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeCheckout(t, w)
	assert.Equal(t, "/login", resp.Redirect)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "error", resp.Messages[0].Level)
	assert.Empty(t, e.upstream.authHeaders)
}

func TestQRCheckoutOverHTTP(t *testing.T) {
	e := newEnv(t)
	s := e.signedIn(t, guest(), "u1")
	e.do(t, s, http.MethodPost, "/cart/items", goCourse)

	w := e.do(t, s, http.MethodPost, "/checkout", `{"mode":"cart"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeCheckout(t, w).Data.ID
	e.do(t, s, http.MethodPost, "/checkout/"+id+"/proceed", "")

	w = e.do(t, s, http.MethodPost, "/checkout/"+id+"/submit", `{"payment_method":"qr"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeCheckout(t, w)
	assert.Equal(t, checkout.StepAwaitingTransfer, resp.Data.Step)
	require.NotNil(t, resp.Data.Transfer)
	assert.Equal(t, "p1", resp.Data.Transfer.Content)
	assert.Equal(t, []string{"Bearer " + s.token}, e.upstream.authHeaders)

	w = e.do(t, s, http.MethodPost, "/checkout/"+id+"/confirm-transfer", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeCheckout(t, w)
	assert.Equal(t, checkout.StepAwaitingTransfer, resp.Data.Step)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "info", resp.Messages[0].Level)

	e.upstream.setVerified(true)
	w = e.do(t, s, http.MethodPost, "/checkout/"+id+"/confirm-transfer", "")
	assert.Equal(t, checkout.StepReadyToComplete, decodeCheckout(t, w).Data.Step)

	w = e.do(t, s, http.MethodPost, "/checkout/"+id+"/complete", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeCheckout(t, w)
	assert.Equal(t, checkout.StepConfirmed, resp.Data.Step)
	assert.Equal(t, "TX-1", resp.Data.TransactionRef)
	assert.Equal(t, "/my-learning", resp.Redirect)

	assert.Equal(t, 0, e.carts.Get(cart.UserOwner("u1")).Count())
	assert.Equal(t, http.StatusNotFound, e.do(t, s, http.MethodGet, "/checkout/"+id, "").Code)
}

func TestEnrollNowOverHTTP(t *testing.T) {
	e := newEnv(t)
	s := e.signedIn(t, guest(), "u1")

	w := e.do(t, s, http.MethodPost, "/checkout", `{"mode":"enroll_now","course_id":"42"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeCheckout(t, w)
	assert.Equal(t, checkout.StepSelectingPayment, resp.Data.Step)

	w = e.do(t, s, http.MethodPost, "/checkout/"+resp.Data.ID+"/submit", `{"payment_method":"card","payment_details":{"card_token":"tok"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeCheckout(t, w)
	assert.Equal(t, checkout.StepConfirmed, resp.Data.Step)
	assert.Equal(t, "30", resp.Data.Total.String())

	w = e.do(t, s, http.MethodPost, "/checkout", `{"mode":"enroll_now","course_id":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "A valid course is required to enroll", decodeCheckout(t, w).Error)
}

func TestBusinessFailureOverHTTP(t *testing.T) {
	e := newEnv(t)
	e.upstream.orderStatus = http.StatusUnprocessableEntity
	e.upstream.orderBody = `{"success":false,"message":"Course unavailable"}`
	s := e.signedIn(t, guest(), "u1")
	e.do(t, s, http.MethodPost, "/cart/items", goCourse)

	w := e.do(t, s, http.MethodPost, "/checkout", `{"mode":"cart"}`)
	id := decodeCheckout(t, w).Data.ID
	e.do(t, s, http.MethodPost, "/checkout/"+id+"/proceed", "")

	w = e.do(t, s, http.MethodPost, "/checkout/"+id+"/submit", `{"payment_method":"card"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeCheckout(t, w)
	assert.Equal(t, checkout.StepFailed, resp.Data.Step)
	assert.Equal(t, "Course unavailable", resp.Error)

	w = e.do(t, s, http.MethodPost, "/checkout/"+id+"/retry", "")
	assert.Equal(t, checkout.StepSelectingPayment, decodeCheckout(t, w).Data.Step)
}

func TestCheckoutSessionsArePrivate(t *testing.T) {
	e := newEnv(t)
	owner := e.signedIn(t, guest(), "u1")
	other := e.signedIn(t, guest(), "u2")

	w := e.do(t, owner, http.MethodPost, "/checkout", `{"mode":"enroll_now","course_id":"7"}`)
	id := decodeCheckout(t, w).Data.ID

	assert.Equal(t, http.StatusNotFound, e.do(t, other, http.MethodGet, "/checkout/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, other, http.MethodDelete, "/checkout/"+id, "").Code)

	assert.Equal(t, http.StatusOK, e.do(t, owner, http.MethodDelete, "/checkout/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, owner, http.MethodGet, "/checkout/"+id, "").Code)
}

func TestEnrollmentsRequireAuth(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, guest(), http.MethodGet, "/enrollments", "").Code)
}

func TestCartEventsStream(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()
	s := guest()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/cart/events", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.SessionHeader, s.sessionID)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data:") {
				events <- strings.TrimPrefix(line, "data:")
			}
		}
		close(events)
	}()

	next := func() cart.Snapshot {
		select {
		case data := <-events:
			var snap cart.Snapshot
			require.NoError(t, json.Unmarshal([]byte(data), &snap))
			return snap
		case <-time.After(2 * time.Second):
			t.Fatal("no cart event received")
			return cart.Snapshot{}
		}
	}

	assert.Equal(t, 0, next().Count)

	e.carts.Get(cart.GuestOwner(s.sessionID)).Add(cart.CartItem{ID: 5, Title: "Rust"})
	snap := next()
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, int64(5), snap.Items[0].ID)
}
