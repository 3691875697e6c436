package sensor

import "github.com/raterudder/luzygas/pkg/types"

var nextInvoiceVariables = map[string]string{
	"nextInvoiceAmount":         "amount",
	"nextInvoiceVariableAmount": "amountVariable",
	"nextInvoiceFixedAmount":    "amountFixed",
}

func standardValue(variable string, b types.Bundle) types.Value {
	if v, ok := b.Costs.Value(variable); ok {
		return types.NumberValue(v)
	}
	if key, ok := nextInvoiceVariables[variable]; ok {
		v, _ := b.NextInvoice.Value(key)
		return types.NumberValue(v)
	}

	switch variable {
	case "lastInvoiceAmount":
		inv := b.LastInvoice()
		return types.ValueOf(inv.Get("amount").Or(inv.Get("totalAmount")))
	case "lastInvoicePaid":
		inv := b.LastInvoice()
		if inv.IsNull() {
			return types.NullValue()
		}
		if inv.Get("status").Text() == "PAID" {
			return types.TextValue("Yes")
		}
		return types.TextValue("No")
	}

	switch b.Contract.ContractType {
	case types.ContractTypeElectricity:
		return electricityValue(variable, b)
	case types.ContractTypeGas:
		return gasValue(variable, b)
	}
	return types.NullValue()
}

func electricityValue(variable string, b types.Bundle) types.Value {
	switch variable {
	case "status", "power", "fee":
		return types.ValueOf(b.ContractField(variable))
	}

	prices := b.ContractField("prices")
	switch variable {
	case "pricesPowerPunta":
		return priceValue(ParsePriceList(priceStrings(prices.Get("power")), 0))
	case "pricesPowerValle":
		return priceValue(ParsePriceList(priceStrings(prices.Get("power")), 1))
	case "pricesEnergyAmount":
		return priceValue(ParsePriceList(priceStrings(prices.Get("energy")), 0))
	}
	return types.NullValue()
}

// gasValue only reads prices from the house details since the contract
// listing doesn't carry gas terms.
func gasValue(variable string, b types.Bundle) types.Value {
	energy := priceStrings(b.HouseContract().Path("prices", "energy"))
	switch variable {
	case "status":
		return types.ValueOf(b.ContractField("status"))
	case "fixedTerm":
		return priceValue(ExtractGasPrice(energy, true))
	case "variableTerm":
		return priceValue(ExtractGasPrice(energy, false))
	}
	return types.NullValue()
}
