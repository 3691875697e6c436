package sensor

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/raterudder/luzygas/pkg/types"
)

func decimalOf(d types.Document) (decimal.Decimal, bool) {
	if s, ok := d.String(); ok {
		v, err := decimal.NewFromString(strings.TrimSpace(s))
		return v, err == nil
	}
	f, ok := d.Float()
	if !ok {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(f), true
}

// roundedValue rounds half away from zero to 2 places.
func roundedValue(d decimal.Decimal) types.Value {
	return types.NumberValue(d.Round(2).InexactFloat64())
}

// conversionPrice is the price of a kWh in the first excedents entry.
func conversionPrice(vb types.Document) types.Document {
	return vb.Path("excedents", "data").Index(0).Get("conversionPrice")
}

// toKWh divides amount by the conversion price. A missing, zero or
// non-numeric price gives an unavailable value.
func toKWh(amount, price types.Document) types.Value {
	if !price.Truthy() {
		return types.NullValue()
	}
	p, ok := decimalOf(price)
	if !ok || p.IsZero() {
		return types.NullValue()
	}
	a, ok := decimalOf(amount)
	if !ok {
		return types.NullValue()
	}
	return roundedValue(a.Div(p))
}

func batteryContract(vb types.Document, contractID string) types.Document {
	return vb.Path("discounts", "contracts").Find(func(c types.Document) bool {
		return c.Get("productCode").Text() == contractID
	})
}

// orZero treats a missing amount as 0.
func orZero(d types.Document) types.Document {
	if d.IsNull() {
		return types.NewDocument(0.0)
	}
	return d
}

func batteryValue(variable, contractID string, vb types.Document) types.Value {
	excedents := vb.Get("excedents")

	switch variable {
	case "pendingAmount":
		c := batteryContract(vb, contractID)
		if c.IsNull() {
			return types.NullValue()
		}
		return types.ValueOf(c.Get("pendingAmount"))
	case "kwhAvailable":
		pending := types.NewDocument(0.0)
		if c := batteryContract(vb, contractID); !c.IsNull() {
			pending = c.Get("pendingAmount")
		}
		return toKWh(pending, conversionPrice(vb))
	case "appliedAmount":
		return types.ValueOf(excedents.Get("appliedAmount"))
	case "kwhRedeemed":
		return toKWh(orZero(excedents.Get("appliedAmount")), conversionPrice(vb))
	case "totalKWh":
		total, ok := decimalOf(orZero(excedents.Get("totalkWh")))
		if !ok {
			return types.NullValue()
		}
		return roundedValue(total)
	case "excedentsPrice":
		return types.ValueOf(conversionPrice(vb))
	}
	return types.NullValue()
}

// LastRedeemed returns the redemption with the greatest billingDate. Dates are
// compared as strings so only zero-padded ISO dates order correctly. On a tie
// the first entry wins.
func LastRedeemed(vb types.Document) (types.Document, bool) {
	var (
		last     types.Document
		lastDate string
		found    bool
	)
	for _, d := range vb.Path("discounts", "data").List() {
		date := d.Get("billingDate").Text()
		if !found || date > lastDate {
			last = d
			lastDate = date
			found = true
		}
	}
	if !found || !last.Truthy() {
		return types.Document{}, false
	}
	return last, true
}

func couponValue(variable string, vb types.Document) types.Value {
	last, ok := LastRedeemed(vb)
	if !ok {
		return types.NullValue()
	}
	return types.ValueOf(last.Get(variable))
}
