package handlers

import (
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
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/elearning-storefront/internal/config"
	"github.com/your-org/elearning-storefront/internal/domain/cart"
	"github.com/your-org/elearning-storefront/internal/domain/checkout"
	"github.com/your-org/elearning-storefront/internal/domain/payment"
	"github.com/your-org/elearning-storefront/internal/interfaces/http/middleware"
	"github.com/your-org/elearning-storefront/internal/pkg/auth"
	"github.com/your-org/elearning-storefront/internal/pkg/logger"
)

// slowOrders answers order creation after a delay
type slowOrders struct {
	delay time.Duration

	mu      sync.Mutex
	served  int
	aborted int
	bearers []string
}

func (s *slowOrders) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-time.After(s.delay):
	case <-r.Context().Done():
		s.mu.Lock()
		s.aborted++
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.served++
	s.bearers = append(s.bearers, r.Header.Get("Authorization"))
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"success":true,"data":{"paymentId":"p1","orderId":"o1"}}`))
}

type checkoutFixture struct {
	router   *gin.Engine
	carts    *cart.Registry
	sessions *checkout.Manager
	orders   *slowOrders
	token    string
	session  string
}

func newCheckoutFixture(t *testing.T, delay time.Duration) *checkoutFixture {
	t.Helper()
	log := logger.Discard()
	up := &slowOrders{delay: delay}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	client := payment.NewClient(config.OrderServiceConfig{
		BaseURL:         srv.URL,
		Timeout:         5 * time.Second,
		CreateOrderPath: "/orders",
	}, log)
	orch := checkout.NewOrchestrator(client, payment.NewVerifier(client, log), nil, nil, checkout.Options{}, log)
	sessions := checkout.NewManager(orch)
	carts := cart.NewRegistry(func(string) cart.Storage { return cart.NewMemoryStorage() }, cart.DefaultStorageKey, log)

	tokens := auth.NewJWTManager(&config.Config{
		App: config.AppConfig{Name: "storefront-test"},
		JWT: config.JWTConfig{Secret: "test-secret", AccessTokenExpiry: time.Hour},
	})
	token, err := tokens.GenerateAccessToken(auth.Profile{UserID: "u1", Email: "ann@example.com"})
	require.NoError(t, err)

	h := NewCheckoutHandler(sessions, carts, log)
	r := gin.New()
	group := r.Group("/checkout", middleware.OptionalAuthMiddleware(tokens), middleware.GuestSession(false))
	group.POST("", h.Begin)
	group.GET("/:id", h.GetCheckout)
	group.POST("/:id/proceed", h.Proceed)
	group.POST("/:id/submit", h.Submit)

	return &checkoutFixture{
		router:   r,
		carts:    carts,
		sessions: sessions,
		orders:   up,
		token:    token,
		session:  uuid.NewString(),
	}
}

func (f *checkoutFixture) do(ctx context.Context, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set(middleware.SessionHeader, f.session)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *checkoutFixture) begin(t *testing.T) string {
	t.Helper()
	f.carts.Get(cart.UserOwner("u1")).Add(cart.CartItem{ID: 1, Title: "Go Basics", Price: decimal.NewFromInt(100000)})

	w := f.do(context.Background(), http.MethodPost, "/checkout", `{"mode":"cart"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Data checkout.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = f.do(context.Background(), http.MethodPost, "/checkout/"+resp.Data.ID+"/proceed", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return resp.Data.ID
}

func TestSubmitSurvivesClientDisconnect(t *testing.T) {
	f := newCheckoutFixture(t, 100*time.Millisecond)
	id := f.begin(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	f.do(ctx, http.MethodPost, "/checkout/"+id+"/submit", `{"payment_method":"qr"}`)

	f.orders.mu.Lock()
	assert.Equal(t, 1, f.orders.served)
	assert.Zero(t, f.orders.aborted)
	assert.Equal(t, []string{"Bearer " + f.token}, f.orders.bearers)
	f.orders.mu.Unlock()

	session, err := f.sessions.Get(id, cart.UserOwner("u1"))
	require.NoError(t, err)
	snap := session.Snapshot()
	assert.Equal(t, checkout.StepAwaitingTransfer, snap.Step)
	require.NotNil(t, snap.Transfer)
	assert.Equal(t, "p1", snap.Transfer.Content)
}

func TestCheckoutHoldsCartLease(t *testing.T) {
	f := newCheckoutFixture(t, 0)
	id := f.begin(t)
	owner := cart.UserOwner("u1")
	held := f.carts.Get(owner)

	assert.Zero(t, f.carts.Sweep(-time.Hour))
	assert.Same(t, held, f.carts.Get(owner))

	require.NoError(t, f.sessions.Leave(id, owner))
	assert.Equal(t, 1, f.carts.Sweep(-time.Hour))
}
