// internal/gateway/request.go
package gateway

import (
	"bytes"
	"math"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/example/checkout-gateway/internal/payment"
	apperr "github.com/example/checkout-gateway/pkg/errors"
)

// maxAmount is 2^63, the first float64 that no longer fits in an int64.
const maxAmount = float64(1 << 63)

var errInvalidAmount = apperr.Validation("invalid_amount", apperr.MsgInvalidAmount)

// ParseRequest decodes an untrusted create-intent body.
//
// Parsing is lenient on purpose: an empty body, malformed JSON or a JSON
// value that is not an object all decode as {} and pick up the defaults.
// Only the amount is validated; the currency is passed through and left for
// the processor to reject.
//
// The amount must be a JSON number holding a positive integer that fits in
// an int64. Numeric strings such as "500" are rejected, not coerced.
func ParseRequest(raw []byte) (payment.Request, error) {
	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			fields = map[string]json.RawMessage{}
		}
	}

	amount, err := parseAmount(fields["amount"])
	if err != nil {
		return payment.Request{}, err
	}
	return payment.Request{Amount: amount, Currency: parseCurrency(fields["currency"])}, nil
}

func isAbsent(v json.RawMessage) bool {
	t := bytes.TrimSpace(v)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func parseAmount(v json.RawMessage) (int64, error) {
	if isAbsent(v) {
		return payment.DefaultAmount, nil
	}
	s := string(bytes.TrimSpace(v))
	if c := s[0]; c != '-' && (c < '0' || c > '9') {
		// strings, booleans, arrays and objects
		return 0, errInvalidAmount
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return 0, errInvalidAmount
		}
		return n, nil
	}

	// exponent or fraction notation; out-of-range literals fail here too
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errInvalidAmount
	}
	if f <= 0 || f != math.Trunc(f) || f >= maxAmount {
		return 0, errInvalidAmount
	}
	return int64(f), nil
}

// parseCurrency returns a string currency verbatim. Any other JSON value is
// sent as its compact JSON text, so [1,2] becomes "[1,2]" rather than the
// "1,2" a JavaScript String() call would give.
func parseCurrency(v json.RawMessage) string {
	if isAbsent(v) {
		return payment.DefaultCurrency
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(bytes.TrimSpace(v))
	}
	return buf.String()
}
