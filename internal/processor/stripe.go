// internal/processor/stripe.go
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/example/checkout-gateway/internal/payment"
)

var ErrMissingSecretKey = errors.New("stripe secret key is not set")

type Config struct {
	SecretKey string
	// APIURL overrides https://api.stripe.com, mostly for tests and local mocks.
	APIURL  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Stripe creates payment intents through an explicitly constructed
// stripe-go client. It never touches the package-level stripe.Key.
type Stripe struct {
	api *client.API
}

func NewStripe(cfg Config) (*Stripe, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingSecretKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	logger := &leveledLogger{l: cfg.Logger.With("component", "stripe")}
	backendConfig := func(url string) *stripe.BackendConfig {
		bc := &stripe.BackendConfig{
			HTTPClient:    httpClient,
			LeveledLogger: logger,
			// a failed call is reported to the caller, never replayed
			MaxNetworkRetries: stripe.Int64(0),
		}
		if url != "" {
			bc.URL = stripe.String(url)
		}
		return bc
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig(cfg.APIURL)),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig("")),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig("")),
	}
	return &Stripe{api: client.New(cfg.SecretKey, backends)}, nil
}

func (s *Stripe) CreateIntent(ctx context.Context, p payment.IntentParams) (payment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
	}
	if p.AutomaticPaymentMethods {
		params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		}
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			return payment.Intent{}, fmt.Errorf("stripe create payment intent: status=%d type=%s code=%s request_id=%s: %w",
				se.HTTPStatusCode, se.Type, se.Code, se.RequestID, err)
		}
		return payment.Intent{}, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return payment.Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// leveledLogger routes stripe-go's own logging into slog.
type leveledLogger struct {
	l *slog.Logger
}

func (z *leveledLogger) Debugf(format string, v ...interface{}) { z.l.Debug(fmt.Sprintf(format, v...)) }
func (z *leveledLogger) Infof(format string, v ...interface{})  { z.l.Info(fmt.Sprintf(format, v...)) }
func (z *leveledLogger) Warnf(format string, v ...interface{})  { z.l.Warn(fmt.Sprintf(format, v...)) }
func (z *leveledLogger) Errorf(format string, v ...interface{}) { z.l.Error(fmt.Sprintf(format, v...)) }
