package types

import "encoding/json"

// CostFields are the keys every Costs carries, in display order.
var CostFields = []string{
	"totalDays",
	"consumption",
	"amount",
	"amountVariable",
	"amountFixed",
	"averageAmount",
}

// NextInvoiceFields are the keys every NextInvoice carries.
var NextInvoiceFields = []string{
	"amount",
	"amountVariable",
	"amountFixed",
}

// Amounts is a fixed set of numeric fields that are all present even when the
// provider only returned some of them. Missing or non-numeric values are 0.
type Amounts struct {
	keys   []string
	values map[string]float64
}

func newAmounts(keys []string, doc Document) Amounts {
	a := Amounts{
		keys:   keys,
		values: make(map[string]float64, len(keys)),
	}
	for _, k := range keys {
		a.values[k] = 0
		if f, ok := doc.Get(k).Float(); ok {
			a.values[k] = f
		}
	}
	return a
}

// Value returns the field and whether it's one of the declared keys.
func (a Amounts) Value(key string) (float64, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Keys returns the declared keys.
func (a Amounts) Keys() []string {
	return append([]string(nil), a.keys...)
}

// Map returns a copy of all the fields.
func (a Amounts) Map() map[string]float64 {
	m := make(map[string]float64, len(a.values))
	for k, v := range a.values {
		m[k] = v
	}
	return m
}

// MarshalJSON implements json.Marshaler.
func (a Amounts) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.values)
}

// Costs is the billing period summary for a contract.
type Costs struct {
	Amounts
}

// NewCosts zero-seeds every cost field and overwrites them from doc.
func NewCosts(doc Document) Costs {
	return Costs{Amounts: newAmounts(CostFields, doc)}
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Costs) UnmarshalJSON(data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	*c = NewCosts(doc)
	return nil
}

// NextInvoice is the provider's estimate for the upcoming invoice.
type NextInvoice struct {
	Amounts
}

// NewNextInvoice zero-seeds every next invoice field and overwrites them from
// doc.
func NewNextInvoice(doc Document) NextInvoice {
	return NextInvoice{Amounts: newAmounts(NextInvoiceFields, doc)}
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NextInvoice) UnmarshalJSON(data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	*n = NewNextInvoice(doc)
	return nil
}
