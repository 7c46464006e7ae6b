// internal/gateway/handler.go
package gateway

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/example/checkout-gateway/internal/payment"
	apperr "github.com/example/checkout-gateway/pkg/errors"
)

// MaxBodyBytes caps the create-intent request body.
const MaxBodyBytes = 1 << 20

// CreatePaymentIntentHandler serves POST /create-payment-intent.
func CreatePaymentIntentHandler(g *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// a body that cannot be read is treated like a malformed one
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			g.log(r.Context()).Debug("request body unreadable, using defaults", "err", err)
			raw = nil
		}

		res, err := g.CreatePaymentIntent(r.Context(), raw)
		if err != nil {
			log := g.log(r.Context())
			switch apperr.KindOf(err) {
			case apperr.KindValidation:
				log.Debug("create payment intent rejected", "err", err)
			default:
				log.Error("create payment intent failed", "err", err)
			}
			writeJSON(w, apperr.HTTPStatus(err), payment.ErrorBody{Error: apperr.PublicMessage(err)})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode response", "err", err)
		http.Error(w, apperr.MsgInternalServer, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
