package types

import (
	"slices"
	"time"
)

// Bundle is everything fetched for a single contract in one poll.
type Bundle struct {
	Contract    Contract    `json:"contract"`
	House       Document    `json:"houseData"`
	Invoices    Document    `json:"invoices"`
	Costs       Costs       `json:"costs"`
	NextInvoice NextInvoice `json:"nextInvoice"`

	// VirtualBattery is null unless the contract is electricity and the
	// history was fetched.
	VirtualBattery Document `json:"virtualBatteryHistory"`
}

// HouseContract returns the house details' entry for the bundle's contract or
// a null Document.
func (b Bundle) HouseContract() Document {
	return b.House.Get("contracts").Find(func(c Document) bool {
		return c.Get("code").Text() == b.Contract.ContractID
	})
}

// ContractField looks up key on the house contract and falls back to the
// listed contract when the house contract has nothing useful.
func (b Bundle) ContractField(key string) Document {
	return b.HouseContract().Get(key).Or(b.Contract.Raw.Get(key))
}

// LastInvoice returns the most recent invoice. The provider sends either a
// list, newest first, or a single object.
func (b Bundle) LastInvoice() Document {
	var head Document
	switch {
	case b.Invoices.IsList():
		head = b.Invoices.Index(0)
	case b.Invoices.IsObject():
		head = b.Invoices
	}
	if !head.Truthy() {
		return Document{}
	}
	return head
}

// Snapshot is the complete result of one poll, keyed by contract ID.
type Snapshot struct {
	FetchedAt time.Time         `json:"fetchedAt"`
	Contracts map[string]Bundle `json:"contracts"`
}

// Bundle returns the bundle for contractID. It is safe to call on a nil
// Snapshot.
func (s *Snapshot) Bundle(contractID string) (Bundle, bool) {
	if s == nil {
		return Bundle{}, false
	}
	b, ok := s.Contracts[contractID]
	return b, ok
}

// ContractIDs returns the snapshot's contract IDs sorted.
func (s *Snapshot) ContractIDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.Contracts))
	for id := range s.Contracts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
