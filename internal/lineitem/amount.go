package lineitem

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount is a raw OCR amount field. The OCR service emits it as a JSON
// number, a string (sometimes with a trailing dash marking a negative,
// e.g. "0.50-"), or null. The zero value is an absent amount.
type Amount struct {
	value any // nil, float64, or string
}

// AmountOf returns a numeric Amount.
func AmountOf(v float64) Amount {
	return Amount{value: v}
}

// AmountText returns a string Amount as OCR'd, sign markers included.
func AmountText(s string) Amount {
	return Amount{value: s}
}

// UnmarshalJSON accepts a number, a string, or null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		a.value = nil
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		a.value = text
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	a.value = num
	return nil
}

// MarshalJSON emits the amount as it was received.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(a.value)
}

// Normalize decodes the amount into a signed float64. Numeric input
// passes through. A string with a trailing dash is the negated absolute
// value of its numeric text. Anything unparseable is 0: a malformed
// amount degrades instead of failing the receipt.
func (a Amount) Normalize() float64 {
	switch v := a.value.(type) {
	case float64:
		return v
	case string:
		s := strings.TrimSpace(v)
		negative := strings.HasSuffix(s, "-")
		s = strings.TrimSpace(strings.TrimSuffix(s, "-"))
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		if negative {
			return -math.Abs(n)
		}
		return n
	default:
		return 0
	}
}

// round2 rounds to two decimal places, the resolution of every money
// field the engine emits.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
