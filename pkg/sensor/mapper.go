package sensor

import (
	"strings"

	"github.com/levenlabs/go-lflag"

	"github.com/raterudder/luzygas/pkg/types"
)

const defaultCurrency = "EUR"

// Mapper enumerates the sensors a snapshot supports.
type Mapper struct {
	currency string
}

// NewMapper returns a Mapper reporting monetary values in currency.
func NewMapper(currency string) *Mapper {
	if currency == "" {
		currency = defaultCurrency
	}
	return &Mapper{currency: currency}
}

// Configured sets up flags for the mapper and returns the instance.
func Configured() *Mapper {
	m := NewMapper(defaultCurrency)
	currency := lflag.String("currency", defaultCurrency, "Currency used for monetary sensor units")
	lflag.Do(func() {
		if c := strings.TrimSpace(*currency); c != "" {
			m.currency = c
		}
	})
	return m
}

// Currency returns the currency used for monetary units.
func (m *Mapper) Currency() string {
	return m.currency
}

func (m *Mapper) newSensor(kind Kind, def Definition, c types.Contract, device Device) Sensor {
	id := c.HouseID + "_" + c.ContractID + "_" + def.Variable
	if kind == KindVirtualBattery {
		id += "_vb"
	}
	return Sensor{
		ID:           id,
		Name:         "Repsol " + c.DisplayCUPS() + " " + def.Name,
		Kind:         kind,
		Variable:     def.Variable,
		Category:     def.Category,
		Unit:         Unit(def.Category, def.Variable, m.currency),
		HouseID:      c.HouseID,
		ContractID:   c.ContractID,
		ContractType: c.ContractType,
		Device:       device,
	}
}

// appliesTo gates the standard definitions by contract type.
func appliesTo(def Definition, t types.ContractType) bool {
	gas := strings.Contains(def.Name, "Gas")
	switch t {
	case types.ContractTypeGas:
		return gas
	case types.ContractTypeElectricity:
		return !gas
	}
	return false
}

// Enumerate returns every sensor applicable to the snapshot's contracts,
// ordered by contract ID. It returns nil for a nil snapshot.
func (m *Mapper) Enumerate(snap *types.Snapshot) []Sensor {
	var sensors []Sensor
	seen := map[string]bool{}
	add := func(s Sensor) {
		if seen[s.ID] {
			return
		}
		seen[s.ID] = true
		sensors = append(sensors, s)
	}

	for _, id := range snap.ContractIDs() {
		b, _ := snap.Bundle(id)
		c := b.Contract
		if c.ContractID == "" {
			c.ContractID = id
		}
		if c.ContractType == "" {
			c.ContractType = types.ContractTypeElectricity
		}

		device := contractDevice(c)
		for _, def := range Definitions {
			if appliesTo(def, c.ContractType) {
				add(m.newSensor(KindStandard, def, c, device))
			}
		}

		if c.ContractType != types.ContractTypeElectricity {
			continue
		}

		for _, sva := range b.HouseContract().Get("sva").List() {
			code := sva.Get("code").Text()
			add(Sensor{
				ID:       c.HouseID + "_" + code,
				Name:     sva.Get("name").Text(),
				Kind:     KindSupplementary,
				Variable: code,
				HouseID:  c.HouseID,
				Device:   supplementaryDevice(c.HouseID),
				Code:     code,
			})
		}

		if !b.VirtualBattery.Truthy() {
			continue
		}
		vbDevice := batteryDevice(c)
		for _, def := range VirtualBatteryDefinitions {
			add(m.newSensor(KindVirtualBattery, def, c, vbDevice))
		}
		if _, ok := LastRedeemed(b.VirtualBattery); ok {
			for _, def := range CouponDefinitions {
				s := m.newSensor(KindVirtualBattery, def, c, vbDevice)
				s.ID += "_coupon"
				s.Coupon = true
				add(s)
			}
		}
	}
	return sensors
}

// Find returns the sensor with the given ID.
func Find(sensors []Sensor, id string) (Sensor, bool) {
	for _, s := range sensors {
		if s.ID == id {
			return s, true
		}
	}
	return Sensor{}, false
}
