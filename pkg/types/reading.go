package types

import "time"

// Reading is a derived sensor value recorded at a point in time.
type Reading struct {
	SensorID   string    `json:"sensorID"`
	HouseID    string    `json:"houseID"`
	ContractID string    `json:"contractID"`
	Variable   string    `json:"variable"`
	Kind       string    `json:"kind"`
	Unit       string    `json:"unit,omitempty"`
	Value      Value     `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}
