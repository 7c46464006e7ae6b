// internal/gateway/gateway.go
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/checkout-gateway/internal/payment"
	"github.com/example/checkout-gateway/internal/reqctx"
	apperr "github.com/example/checkout-gateway/pkg/errors"
	m "github.com/example/checkout-gateway/pkg/metrics"
)

const DefaultProcessorTimeout = 10 * time.Second

var errEmptyClientSecret = errors.New("processor returned an empty client secret")

type Deps struct {
	Processor payment.Processor
	// Events is optional; nil disables intent events.
	Events  payment.EventPublisher
	Timeout time.Duration
	Logger  *slog.Logger
}

// Gateway validates create-intent requests and relays them to the payment
// processor. It holds no per-request state and is safe for concurrent use.
type Gateway struct {
	processor payment.Processor
	events    payment.EventPublisher
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func New(d Deps) *Gateway {
	g := &Gateway{
		processor: d.Processor,
		events:    d.Events,
		timeout:   d.Timeout,
		logger:    d.Logger,
		now:       time.Now,
	}
	if g.timeout <= 0 {
		g.timeout = DefaultProcessorTimeout
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// CreatePaymentIntent parses rawBody, validates the amount and asks the
// processor for a new intent. The processor is never called when validation
// fails. There is no retry and no idempotency key: a caller that resubmits
// after a lost response creates a second intent.
func (g *Gateway) CreatePaymentIntent(ctx context.Context, rawBody []byte) (payment.Result, error) {
	req, err := ParseRequest(rawBody)
	if err != nil {
		return payment.Result{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	intent, err := g.processor.CreateIntent(callCtx, payment.IntentParams{
		Amount:                  req.Amount,
		Currency:                req.Currency,
		AutomaticPaymentMethods: true,
	})
	if err == nil && intent.ClientSecret == "" {
		err = errEmptyClientSecret
	}
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			m.IncProcessorCall(m.OutcomeTimeout)
			return payment.Result{}, apperr.Processor("create_intent_timeout", errors.Join(err, callCtx.Err()))
		}
		m.IncProcessorCall(m.OutcomeFailed)
		return payment.Result{}, apperr.Processor("create_intent", err)
	}
	m.IncProcessorCall(m.OutcomeSuccess)

	g.publishCreated(ctx, req, intent)
	return payment.Result{ClientSecret: intent.ClientSecret}, nil
}

func (g *Gateway) publishCreated(ctx context.Context, req payment.Request, intent payment.Intent) {
	if g.events == nil {
		return
	}
	ev := payment.CreatedEvent{
		Event:           payment.EventIntentCreated,
		PaymentIntentID: intent.ID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		RequestID:       reqctx.RequestID(ctx),
		CreatedAt:       g.now().UTC().Format(time.RFC3339Nano),
	}
	if err := g.events.PublishIntentCreated(ctx, ev); err != nil {
		g.log(ctx).Warn("publish intent event failed",
			"payment_intent_id", intent.ID, "err", err)
	}
}

func (g *Gateway) log(ctx context.Context) *slog.Logger {
	return reqctx.LoggerOr(ctx, g.logger)
}
