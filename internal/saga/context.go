package saga

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// KeyCompensatedSteps holds the names of steps compensated so far, in unwind order.
const KeyCompensatedSteps = "compensated_steps"

// Context is the data shared by the steps of one saga instance.
// Steps return deltas that are merged in; it is never shared across sagas.
type Context map[string]interface{}

// Merge copies every key of delta into c, overwriting existing keys.
func (c Context) Merge(delta Context) {
	for k, v := range delta {
		c[k] = v
	}
}

// Clone returns a shallow copy.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// String returns the string stored at key, or "" if absent or not a string.
func (c Context) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// RequireString returns the non-empty string stored at key.
func (c Context) RequireString(key string) (string, error) {
	s := c.String(key)
	if s == "" {
		return "", fmt.Errorf("saga context: %q is required", key)
	}
	return s, nil
}

// Decimal returns the numeric value stored at key.
// Accepts decimal.Decimal, numeric strings, and the numeric types JSON decoding produces.
func (c Context) Decimal(key string) (decimal.Decimal, error) {
	v, ok := c[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("saga context: %q is required", key)
	}
	switch val := v.(type) {
	case decimal.Decimal:
		return val, nil
	case *decimal.Decimal:
		if val != nil {
			return *val, nil
		}
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero, fmt.Errorf("saga context: %q: %w", key, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	}
	return decimal.Zero, fmt.Errorf("saga context: %q has non-numeric type %T", key, v)
}

// CompensatedSteps returns the names recorded under KeyCompensatedSteps.
func (c Context) CompensatedSteps() []string {
	names, _ := c[KeyCompensatedSteps].([]string)
	return names
}
