package sensor

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/raterudder/luzygas/pkg/types"
)

// The provider formats prices for display, e.g. "Punta: 0,123456 €/kW día".
var priceRE = regexp.MustCompile(`(\d+,\d+)`)

const (
	gasFixedLabel    = "Término Fijo"
	gasVariableLabel = "Término Variable"
)

func parsePrice(s string) (string, bool) {
	m := priceRE.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return strings.Replace(m[1], ",", ".", 1), true
}

// ParsePriceList extracts the first comma-decimal number of every string and
// returns the index-th one found with a period separator. Strings without a
// number are skipped.
func ParsePriceList(prices []string, index int) (string, bool) {
	var parsed []string
	for _, p := range prices {
		if v, ok := parsePrice(p); ok {
			parsed = append(parsed, v)
		}
	}
	if index < 0 || index >= len(parsed) {
		return "", false
	}
	return parsed[index], true
}

// ExtractGasPrice returns the price of the first string containing the fixed
// or variable term label.
func ExtractGasPrice(prices []string, fixed bool) (string, bool) {
	label := gasVariableLabel
	if fixed {
		label = gasFixedLabel
	}
	for _, p := range prices {
		if !strings.Contains(p, label) {
			continue
		}
		if v, ok := parsePrice(p); ok {
			return v, true
		}
	}
	return "", false
}

func priceStrings(d types.Document) []string {
	list := d.List()
	prices := make([]string, 0, len(list))
	for _, p := range list {
		prices = append(prices, p.Text())
	}
	return prices
}

// priceValue keeps the parsed string as the displayed value.
func priceValue(s string, ok bool) types.Value {
	if !ok {
		return types.NullValue()
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return types.TextValue(s)
	}
	return types.Value{
		Valid:   true,
		Numeric: true,
		Number:  d.InexactFloat64(),
		Text:    s,
	}
}
