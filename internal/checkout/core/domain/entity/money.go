package entity

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value that storefronts send either as a JSON number
// or as a numeric string ("10.50"). Decoding never fails: a malformed value
// is recorded and surfaced later as a field-level validation error, so the
// caller sees every violation in one response instead of a generic JSON
// parse failure.
type Amount struct {
	dec decimal.Decimal
	set bool
	ok  bool
}

// NewAmount builds a valid Amount, mainly for tests and fixtures.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{dec: d, set: true, ok: true}
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = Amount{}
		return nil
	}

	raw := b
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*a = Amount{set: true}
			return nil
		}
		raw = []byte(s)
	}

	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		*a = Amount{set: true}
		return nil
	}
	*a = Amount{dec: d, set: true, ok: true}
	return nil
}

// MarshalJSON always emits a plain JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.ok {
		return []byte("0"), nil
	}
	return []byte(a.dec.String()), nil
}

// Set reports whether the field was present in the payload at all.
func (a Amount) Set() bool { return a.set }

// Valid reports whether the value parsed as a number.
func (a Amount) Valid() bool { return a.ok }

// Positive reports whether the value is valid and strictly greater than zero.
func (a Amount) Positive() bool {
	return a.ok && a.dec.IsPositive()
}

// Decimal returns the parsed value; zero when invalid or unset.
func (a Amount) Decimal() decimal.Decimal { return a.dec }
