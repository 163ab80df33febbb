package domain

import "time"

type ServiceType string

const (
	ServiceProperty ServiceType = "property"
	ServiceVehicle  ServiceType = "vehicle"
	ServiceCircuit  ServiceType = "circuit"
)

// TourService is a bookable offering: a property, a vehicle or a circuit.
// Circuits are priced per seat, properties and vehicles per day.
type TourService struct {
	ID           int64       `json:"id"`
	Type         ServiceType `json:"type"`
	Name         string      `json:"name"`
	PricePerUnit float64     `json:"price_per_unit"`
	Currency     string      `json:"currency"`
	Capacity     int         `json:"capacity"`
	PartnerID    int64       `json:"partner_id"`
	Active       bool        `json:"active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// PricedPerSeat reports whether the amount scales with party size rather
// than duration.
func (t ServiceType) PricedPerSeat() bool { return t == ServiceCircuit }
