// Package sensor derives named sensor values from a fetched snapshot. Values
// are recomputed on every read and never cached.
package sensor

import (
	"time"

	"github.com/raterudder/luzygas/pkg/types"
)

// Kind separates the three families of sensors.
type Kind string

const (
	KindStandard       Kind = "standard"
	KindVirtualBattery Kind = "virtual_battery"
	KindSupplementary  Kind = "supplementary"
)

// Category determines the unit of a sensor.
type Category int

const (
	CategoryNone Category = iota
	CategoryMonetary
	CategoryEnergy
	CategoryPower
)

func (c Category) String() string {
	switch c {
	case CategoryMonetary:
		return "monetary"
	case CategoryEnergy:
		return "energy"
	case CategoryPower:
		return "power"
	}
	return ""
}

// Definition describes a sensor that can be instantiated for a contract.
type Definition struct {
	Name     string
	Variable string
	Category Category
}

// Definitions are the per-contract sensors. Names containing "Gas" only apply
// to gas contracts and every other definition only applies to electricity.
var Definitions = []Definition{
	{"Amount", "amount", CategoryMonetary},
	{"Consumption", "consumption", CategoryEnergy},
	{"Total Days", "totalDays", CategoryNone},
	{"Amount Variable", "amountVariable", CategoryMonetary},
	{"Amount Fixed", "amountFixed", CategoryMonetary},
	{"Average Daily Amount", "averageAmount", CategoryMonetary},
	{"Last Invoice", "lastInvoiceAmount", CategoryMonetary},
	{"Last Invoice Paid", "lastInvoicePaid", CategoryNone},
	{"Next Invoice Amount", "nextInvoiceAmount", CategoryMonetary},
	{"Next Invoice Variable Amount", "nextInvoiceVariableAmount", CategoryMonetary},
	{"Next Invoice Fixed Amount", "nextInvoiceFixedAmount", CategoryMonetary},
	{"Contract Status", "status", CategoryNone},
	{"Power", "power", CategoryPower},
	{"Tariff", "fee", CategoryNone},
	{"Power Price Punta", "pricesPowerPunta", CategoryMonetary},
	{"Power Price Valle", "pricesPowerValle", CategoryMonetary},
	{"Energy Price", "pricesEnergyAmount", CategoryMonetary},
	{"Gas Fixed Term", "fixedTerm", CategoryMonetary},
	{"Gas Variable Term", "variableTerm", CategoryMonetary},
}

// VirtualBatteryDefinitions apply to electricity contracts with a virtual
// battery.
var VirtualBatteryDefinitions = []Definition{
	{"Virtual Battery Amount Pending", "pendingAmount", CategoryMonetary},
	{"Virtual Battery kWh Available", "kwhAvailable", CategoryEnergy},
	{"Virtual Battery Total Amount Redeemed", "appliedAmount", CategoryMonetary},
	{"Virtual Battery Total kWh Redeemed", "kwhRedeemed", CategoryEnergy},
	{"Virtual Battery Total kWh Charged", "totalKWh", CategoryEnergy},
	{"Virtual Battery Excedents Price", "excedentsPrice", CategoryMonetary},
}

// CouponDefinitions read from the most recent virtual battery redemption.
var CouponDefinitions = []Definition{
	{"Last Amount Redeemed", "amount", CategoryMonetary},
	{"Last kWh Redeemed", "kWh", CategoryEnergy},
}

// perKWhVariables are monetary values priced per kWh.
var perKWhVariables = map[string]bool{
	"pricesEnergyAmount": true,
	"excedentsPrice":     true,
}

// Unit returns the unit for a sensor of the given category and variable.
func Unit(c Category, variable, currency string) string {
	switch c {
	case CategoryEnergy:
		return "kWh"
	case CategoryPower:
		return "kW"
	case CategoryMonetary:
		if perKWhVariables[variable] {
			return currency + "/kWh"
		}
		return currency
	}
	return ""
}

// Device groups sensors the way the host platform shows them.
type Device struct {
	Identifier       string `json:"identifier"`
	Name             string `json:"name"`
	Manufacturer     string `json:"manufacturer"`
	Model            string `json:"model"`
	SerialNumber     string `json:"serialNumber"`
	ConfigurationURL string `json:"configurationURL"`
}

const (
	manufacturer     = "Repsol Luz y Gas"
	configurationURL = "https://areacliente.repsol.es/productos-y-servicios"
)

func contractDevice(c types.Contract) Device {
	return Device{
		Identifier:       c.HouseID + "_" + c.ContractID,
		Name:             string(c.ContractType) + " - " + c.DisplayCUPS(),
		Manufacturer:     manufacturer,
		Model:            string(c.ContractType),
		SerialNumber:     c.ContractID,
		ConfigurationURL: configurationURL,
	}
}

func batteryDevice(c types.Contract) Device {
	return Device{
		Identifier:       "virtual_battery_" + c.HouseID + "_" + c.ContractID,
		Name:             "Virtual Battery - " + c.HouseID,
		Manufacturer:     manufacturer,
		Model:            "Virtual Battery",
		SerialNumber:     c.HouseID,
		ConfigurationURL: configurationURL,
	}
}

func supplementaryDevice(houseID string) Device {
	return Device{
		Identifier:       houseID,
		Name:             "SVA - " + houseID,
		Manufacturer:     manufacturer,
		Model:            "SVAs",
		SerialNumber:     houseID,
		ConfigurationURL: configurationURL,
	}
}

// Sensor is a single named value derived from a snapshot.
type Sensor struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Kind         Kind               `json:"kind"`
	Variable     string             `json:"variable"`
	Category     Category           `json:"-"`
	Unit         string             `json:"unit,omitempty"`
	HouseID      string             `json:"houseID"`
	ContractID   string             `json:"contractID,omitempty"`
	ContractType types.ContractType `json:"contractType,omitempty"`
	Device       Device             `json:"device"`

	// Coupon is set on virtual battery sensors reading the last redemption.
	Coupon bool `json:"coupon,omitempty"`

	// Code is the service code of a supplementary sensor.
	Code string `json:"code,omitempty"`
}

// Value computes the sensor's current value from snap. A nil snapshot or a
// contract missing from it gives an unavailable value.
func (s Sensor) Value(snap *types.Snapshot) types.Value {
	if s.Kind == KindSupplementary {
		return types.TextValue(s.Code)
	}
	b, ok := snap.Bundle(s.ContractID)
	if !ok {
		return types.NullValue()
	}
	switch s.Kind {
	case KindStandard:
		return standardValue(s.Variable, b)
	case KindVirtualBattery:
		if s.Coupon {
			return couponValue(s.Variable, b.VirtualBattery)
		}
		return batteryValue(s.Variable, s.ContractID, b.VirtualBattery)
	}
	return types.NullValue()
}

// Reading records the sensor's current value at ts.
func (s Sensor) Reading(snap *types.Snapshot, ts time.Time) types.Reading {
	return types.Reading{
		SensorID:   s.ID,
		HouseID:    s.HouseID,
		ContractID: s.ContractID,
		Variable:   s.Variable,
		Kind:       string(s.Kind),
		Unit:       s.Unit,
		Value:      s.Value(snap),
		Timestamp:  ts,
	}
}

// Readings records every sensor's current value at ts.
func Readings(sensors []Sensor, snap *types.Snapshot, ts time.Time) []types.Reading {
	readings := make([]types.Reading, 0, len(sensors))
	for _, s := range sensors {
		readings = append(readings, s.Reading(snap, ts))
	}
	return readings
}
