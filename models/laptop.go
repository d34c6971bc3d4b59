package models

import "time"

// Recognized specification attributes. Extraction only ever files values
// under one of these keys; anything else lands in the Other bucket.
const (
	AttrCPU             = "cpu"
	AttrRAM             = "ram"
	AttrStorage         = "storage"
	AttrDisplay         = "display"
	AttrGraphics        = "graphics"
	AttrBattery         = "battery"
	AttrPorts           = "ports"
	AttrDimensions      = "dimensions"
	AttrWeight          = "weight"
	AttrOperatingSystem = "operating_system"
)

// RecognizedAttrs lists the closed enumeration of spec attributes in
// canonical order.
var RecognizedAttrs = []string{
	AttrCPU, AttrRAM, AttrStorage, AttrDisplay, AttrGraphics,
	AttrBattery, AttrPorts, AttrDimensions, AttrWeight, AttrOperatingSystem,
}

// SpecMap maps recognized attribute names to an ordered list of extracted
// values; the first entry is treated as canonical. Labeled fields found
// outside the enumeration are kept under Other rather than discarded.
type SpecMap struct {
	CPU             []string `json:"cpu,omitempty"`
	RAM             []string `json:"ram,omitempty"`
	Storage         []string `json:"storage,omitempty"`
	Display         []string `json:"display,omitempty"`
	Graphics        []string `json:"graphics,omitempty"`
	Battery         []string `json:"battery,omitempty"`
	Ports           []string `json:"ports,omitempty"`
	Dimensions      []string `json:"dimensions,omitempty"`
	Weight          []string `json:"weight,omitempty"`
	OperatingSystem []string `json:"operating_system,omitempty"`

	Other map[string][]string `json:"other,omitempty"`
}

// Get returns the values stored under a recognized attribute name.
func (m *SpecMap) Get(attr string) []string {
	switch attr {
	case AttrCPU:
		return m.CPU
	case AttrRAM:
		return m.RAM
	case AttrStorage:
		return m.Storage
	case AttrDisplay:
		return m.Display
	case AttrGraphics:
		return m.Graphics
	case AttrBattery:
		return m.Battery
	case AttrPorts:
		return m.Ports
	case AttrDimensions:
		return m.Dimensions
	case AttrWeight:
		return m.Weight
	case AttrOperatingSystem:
		return m.OperatingSystem
	}
	return nil
}

// Set stores values under an attribute name, routing unrecognized names to
// the Other bucket.
func (m *SpecMap) Set(attr string, values []string) {
	switch attr {
	case AttrCPU:
		m.CPU = values
	case AttrRAM:
		m.RAM = values
	case AttrStorage:
		m.Storage = values
	case AttrDisplay:
		m.Display = values
	case AttrGraphics:
		m.Graphics = values
	case AttrBattery:
		m.Battery = values
	case AttrPorts:
		m.Ports = values
	case AttrDimensions:
		m.Dimensions = values
	case AttrWeight:
		m.Weight = values
	case AttrOperatingSystem:
		m.OperatingSystem = values
	default:
		if m.Other == nil {
			m.Other = make(map[string][]string)
		}
		m.Other[attr] = values
	}
}

// IsEmpty reports whether no attribute holds any value.
func (m *SpecMap) IsEmpty() bool {
	for _, attr := range RecognizedAttrs {
		if len(m.Get(attr)) > 0 {
			return false
		}
	}
	return len(m.Other) == 0
}

// Laptop is the identity row: unique by (Brand, ModelName), created and
// updated only by the ingestion pipeline.
type Laptop struct {
	ID        int64     `json:"id"`
	Brand     string    `json:"brand"`
	ModelName string    `json:"model_name"`
	Specs     SpecMap   `json:"specifications"`
	CreatedAt time.Time `json:"created_at"`
}

// Offer is one timestamped price/availability observation. Append-only.
type Offer struct {
	ID          int64     `json:"id"`
	LaptopID    int64     `json:"-"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	IsAvailable bool      `json:"is_available"`
	ShippingETA string    `json:"shipping_eta,omitempty"`
	Promotions  []string  `json:"promotions"`
	Seller      string    `json:"seller,omitempty"`
	ObservedAt  time.Time `json:"timestamp"`
}

// Review is one customer review observation. Append-only.
type Review struct {
	ID         int64     `json:"id"`
	LaptopID   int64     `json:"-"`
	Rating     float64   `json:"rating"`
	Text       string    `json:"review_text,omitempty"`
	Author     string    `json:"author,omitempty"`
	ObservedAt time.Time `json:"timestamp"`
}

// QnA is one question/answer pair from a retailer page. Append-only.
type QnA struct {
	ID         int64     `json:"id"`
	LaptopID   int64     `json:"-"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer,omitempty"`
	ObservedAt time.Time `json:"timestamp"`
}
