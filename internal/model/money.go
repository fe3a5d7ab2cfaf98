package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// ParseCents converts decimal string amounts (major units) to minor units.
// The shop API serializes prices as decimal strings or JSON numbers
// depending on the endpoint; both end up here.
// Examples: "99.00" → 9900, "1234.56" → 123456, "" → 0
func ParseCents(s string) int64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f * 100))
}

// Price decodes a price that may arrive as a JSON number or a quoted
// decimal string and keeps it in minor units.
type Price int64

// UnmarshalJSON accepts 12.5, "12.50" and null.
func (p *Price) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Price(ParseCents(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = Price(math.Round(f * 100))
	return nil
}
