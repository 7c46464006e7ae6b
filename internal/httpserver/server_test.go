package httpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/checkout-gateway/internal/gateway"
	"github.com/example/checkout-gateway/internal/payment"
	"github.com/example/checkout-gateway/internal/reqctx"
)

const testOrigin = "http://localhost:3001"

type MockProcessor struct {
	mu         sync.Mutex
	calls      int
	CreateFunc func(ctx context.Context, p payment.IntentParams) (payment.Intent, error)
}

func (m *MockProcessor) CreateIntent(ctx context.Context, p payment.IntentParams) (payment.Intent, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	return payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret_x"}, nil
}

func (m *MockProcessor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestServer(t *testing.T, proc payment.Processor, corsEnabled bool) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := gateway.New(gateway.Deps{Processor: proc, Logger: logger})
	return NewAPIServer(g, Options{CORSEnabled: corsEnabled, AllowedOrigin: testOrigin, Logger: logger}).Handler()
}

func do(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &MockProcessor{}, true)

	rec := do(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func assertCORSHeaders(t *testing.T, rec *httptest.ResponseRecorder, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"), msgAndArgs...)
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"), msgAndArgs...)
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"), msgAndArgs...)
}

func assertNoCORSHeaders(t *testing.T, rec *httptest.ResponseRecorder, msgAndArgs ...any) {
	t.Helper()
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), msgAndArgs...)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"), msgAndArgs...)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Headers"), msgAndArgs...)
}

func TestHealthCarriesCORSHeaders(t *testing.T) {
	h := newTestServer(t, &MockProcessor{}, true)

	rec := do(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assertCORSHeaders(t, rec)

	rec = do(h, http.MethodGet, "/health", "", map[string]string{"Origin": testOrigin})
	assert.Equal(t, http.StatusOK, rec.Code)
	assertCORSHeaders(t, rec)
}

func TestCORSNeverEchoesOtherOrigins(t *testing.T) {
	h := newTestServer(t, &MockProcessor{}, true)

	rec := do(h, http.MethodGet, "/health", "", map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assertCORSHeaders(t, rec)

	rec = do(h, http.MethodOptions, "/create-payment-intent", "", map[string]string{
		"Origin":                        "https://evil.example",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assertCORSHeaders(t, rec)
}

func TestPreflightAnyPath(t *testing.T) {
	proc := &MockProcessor{}
	h := newTestServer(t, proc, true)

	requests := map[string]map[string]string{
		"no headers":  nil,
		"origin only": {"Origin": testOrigin},
		"browser preflight": {
			"Origin":                         testOrigin,
			"Access-Control-Request-Method":  http.MethodPost,
			"Access-Control-Request-Headers": "Content-Type",
		},
	}
	for name, headers := range requests {
		for _, path := range []string{"/create-payment-intent", "/health", "/does/not/exist"} {
			rec := do(h, http.MethodOptions, path, "", headers)
			assert.Equal(t, http.StatusNoContent, rec.Code, name+" "+path)
			assert.Empty(t, rec.Body.String(), name+" "+path)
			assertCORSHeaders(t, rec, name+" "+path)
		}
	}
	assert.Zero(t, proc.Calls())
}

func TestBareOptionsIs204(t *testing.T) {
	for _, corsEnabled := range []bool{true, false} {
		h := newTestServer(t, &MockProcessor{}, corsEnabled)
		rec := do(h, http.MethodOptions, "/anything", "", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	}
}

func TestCORSDisabled(t *testing.T) {
	h := newTestServer(t, &MockProcessor{}, false)

	rec := do(h, http.MethodOptions, "/create-payment-intent", "", map[string]string{
		"Origin":                        testOrigin,
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assertNoCORSHeaders(t, rec)

	rec = do(h, http.MethodGet, "/health", "", map[string]string{"Origin": testOrigin})
	assert.Equal(t, http.StatusOK, rec.Code)
	assertNoCORSHeaders(t, rec)
}

func TestNotFoundHasNoCORSHeaders(t *testing.T) {
	h := newTestServer(t, &MockProcessor{}, true)

	rec := do(h, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assertNoCORSHeaders(t, rec)
}

func TestNotFound(t *testing.T) {
	h := newTestServer(t, &MockProcessor{}, true)

	cases := []struct{ method, path string }{
		{http.MethodGet, "/"},
		{http.MethodGet, "/nope"},
		{http.MethodPost, "/health"},
		{http.MethodGet, "/create-payment-intent"},
		{http.MethodPut, "/create-payment-intent"},
		{http.MethodDelete, "/health"},
	}
	for _, tc := range cases {
		rec := do(h, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.method+" "+tc.path)
		assert.Equal(t, "Not found", rec.Body.String(), tc.method+" "+tc.path)
	}
}

func TestCreatePaymentIntentScenarios(t *testing.T) {
	var got []payment.IntentParams
	var mu sync.Mutex
	proc := &MockProcessor{CreateFunc: func(_ context.Context, p payment.IntentParams) (payment.Intent, error) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		return payment.Intent{ID: "pi_9", ClientSecret: "pi_9_secret_opaque"}, nil
	}}
	h := newTestServer(t, proc, true)

	rec := do(h, http.MethodPost, "/create-payment-intent", `{"amount": 500, "currency": "eur"}`,
		map[string]string{"Content-Type": "application/json", "Origin": testOrigin})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"clientSecret":"pi_9_secret_opaque"}`, rec.Body.String())
	assertCORSHeaders(t, rec)

	rec = do(h, http.MethodPost, "/create-payment-intent", `{}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assertCORSHeaders(t, rec)

	rec = do(h, http.MethodPost, "/create-payment-intent", `{"amount": -5}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid amount"}`, rec.Body.String())
	assertCORSHeaders(t, rec)

	require.Len(t, got, 2)
	assert.Equal(t, payment.IntentParams{Amount: 500, Currency: "eur", AutomaticPaymentMethods: true}, got[0])
	assert.Equal(t, payment.IntentParams{Amount: 1000, Currency: "usd", AutomaticPaymentMethods: true}, got[1])
}

func TestCreatePaymentIntentProcessorFailure(t *testing.T) {
	proc := &MockProcessor{CreateFunc: func(context.Context, payment.IntentParams) (payment.Intent, error) {
		return payment.Intent{}, errors.New("dial tcp: connection refused")
	}}
	h := newTestServer(t, proc, true)

	rec := do(h, http.MethodPost, "/create-payment-intent", `{"amount": 100}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
	assertCORSHeaders(t, rec)
}

func TestRequestIDAssignedAndEchoed(t *testing.T) {
	h := newTestServer(t, &MockProcessor{}, true)

	rec := do(h, http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, rec.Header().Get(reqctx.HeaderRequestID))

	rec = do(h, http.MethodGet, "/health", "", map[string]string{reqctx.HeaderRequestID: "abc-123"})
	assert.Equal(t, "abc-123", rec.Header().Get(reqctx.HeaderRequestID))

	long := strings.Repeat("x", maxRequestIDLen+1)
	rec = do(h, http.MethodGet, "/health", "", map[string]string{reqctx.HeaderRequestID: long})
	assert.NotEqual(t, long, rec.Header().Get(reqctx.HeaderRequestID))
}

func TestRequestIDReachesGateway(t *testing.T) {
	var seen string
	proc := &MockProcessor{CreateFunc: func(ctx context.Context, _ payment.IntentParams) (payment.Intent, error) {
		seen = reqctx.RequestID(ctx)
		return payment.Intent{ID: "pi", ClientSecret: "s"}, nil
	}}
	h := newTestServer(t, proc, false)

	rec := do(h, http.MethodPost, "/create-payment-intent", `{}`, map[string]string{reqctx.HeaderRequestID: "rid-7"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rid-7", seen)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &MockProcessor{}, false)
	_ = do(h, http.MethodGet, "/health", "", nil)

	rec := do(h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "checkout_requests_total")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := gateway.New(gateway.Deps{Processor: &MockProcessor{}, Logger: logger})
	s := NewAPIServer(g, Options{Logger: logger, ShutdownTimeout: time.Second})

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	resp, err := http.Get("http://" + lis.Addr().String() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
