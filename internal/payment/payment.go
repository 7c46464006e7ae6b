// Package payment holds the types exchanged between the HTTP gateway and the
// payment processor adapter.
package payment

import "context"

const (
	DefaultAmount   int64 = 1000
	DefaultCurrency       = "usd"
)

// Request is a validated create-intent request. Amount is in the currency's
// minor unit (cents for usd).
type Request struct {
	Amount   int64
	Currency string
}

// IntentParams is exactly what is forwarded to the processor.
type IntentParams struct {
	Amount                  int64
	Currency                string
	AutomaticPaymentMethods bool
}

// Intent is the processor's answer. ClientSecret is opaque to the gateway.
type Intent struct {
	ID           string
	ClientSecret string
}

// Result is the body returned to the browser on success.
type Result struct {
	ClientSecret string `json:"clientSecret"`
}

// ErrorBody is the body returned to the browser on failure.
type ErrorBody struct {
	Error string `json:"error"`
}

// Processor creates payment intents on the remote payment service.
type Processor interface {
	CreateIntent(ctx context.Context, p IntentParams) (Intent, error)
}

// CreatedEvent is emitted after an intent has been created.
type CreatedEvent struct {
	Event           string `json:"event"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	RequestID       string `json:"request_id,omitempty"`
	CreatedAt       string `json:"created_at"`
}

const EventIntentCreated = "payment_intent.created"

// EventPublisher is a best-effort sink for intent events.
type EventPublisher interface {
	PublishIntentCreated(ctx context.Context, ev CreatedEvent) error
}
