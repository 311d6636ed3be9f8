package money

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Scale is the number of minor units in one major unit. Amounts carry two decimal places.
const Scale = 100

// ErrInvalidAmount is returned when a value cannot be represented exactly in minor units.
var ErrInvalidAmount = errors.New("invalid amount")

// Amount holds a currency value in minor units (cents). 1000.50 is stored as 100050.
type Amount int64

// FromMajor converts a whole number of major units to an Amount.
func FromMajor(units int64) Amount {
	return Amount(units * Scale)
}

// Minor returns the raw minor-unit value.
func (a Amount) Minor() int64 {
	return int64(a)
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a > 0
}

// String renders the amount in major units with exactly two decimals, e.g. "400.00".
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		if v == math.MinInt64 {
			return "-92233720368547758.08"
		}
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/Scale, v%Scale)
}

// Parse reads a decimal string in major units ("400", "12.5", "0.05"). More than two
// fractional digits or values that overflow int64 minor units are rejected.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasPoint := strings.Cut(s, ".")
	if whole == "" && (!hasPoint || frac == "") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: more than two decimal places", ErrInvalidAmount)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}

	var units int64
	if whole != "" {
		n, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		units = n
	}
	if units > math.MaxInt64/Scale {
		return 0, fmt.Errorf("%w: value overflows", ErrInvalidAmount)
	}

	cents := int64(0)
	if frac != "" {
		for len(frac) < 2 {
			frac += "0"
		}
		n, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		cents = n
	}

	total := units*Scale + cents
	if total < 0 {
		return 0, fmt.Errorf("%w: value overflows", ErrInvalidAmount)
	}
	if negative {
		total = -total
	}
	return Amount(total), nil
}

// MarshalJSON encodes the amount as a decimal string to avoid float rounding on clients.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a JSON string or a JSON number in major units.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("%w: null", ErrInvalidAmount)
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
	}
	if strings.ContainsAny(raw, "eE") {
		return fmt.Errorf("%w: exponent notation not supported", ErrInvalidAmount)
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
