package types

import "strings"

// ContractType is the kind of supply a contract covers.
type ContractType string

const (
	ContractTypeElectricity ContractType = "ELECTRICITY"
	ContractTypeGas         ContractType = "GAS"
)

// ParseContractType upper-cases t and defaults to electricity when it's empty,
// which is what the provider implies for older contracts.
func ParseContractType(t string) ContractType {
	t = strings.ToUpper(strings.TrimSpace(t))
	if t == "" {
		return ContractTypeElectricity
	}
	return ContractType(t)
}

// Contract is a single supply contract as listed under a house.
type Contract struct {
	ContractID   string       `json:"contract_id"`
	ContractType ContractType `json:"contractType"`
	CUPS         string       `json:"cups"`
	Active       bool         `json:"active"`
	HouseID      string       `json:"house_id"`

	// Raw is the provider's contract object from the listing.
	Raw Document `json:"raw"`
}

// DisplayCUPS returns the CUPS or, if the provider didn't send one, the
// contract ID.
func (c Contract) DisplayCUPS() string {
	if c.CUPS != "" {
		return c.CUPS
	}
	return c.ContractID
}

// Label is the human readable "TYPE - CUPS" label for the contract.
func (c Contract) Label() string {
	return string(c.ContractType) + " - " + c.DisplayCUPS()
}
