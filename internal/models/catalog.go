package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type ServiceType string

const (
	ServiceTypeHotel       ServiceType = "HOTEL"
	ServiceTypeRestaurant  ServiceType = "RESTAURANT"
	ServiceTypeTicketVenue ServiceType = "TICKET_VENUE"
)

func (t ServiceType) Valid() bool {
	switch t {
	case ServiceTypeHotel, ServiceTypeRestaurant, ServiceTypeTicketVenue:
		return true
	}
	return false
}

type Province struct {
	bun.BaseModel `bun:"table:provinces"`

	Code string `bun:"code,pk" json:"code"`
	Name string `bun:"name,notnull" json:"name"`
}

// Service is a listing (hotel, restaurant or ticketed venue).
type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID           string      `bun:"id,pk" json:"id"`
	ServiceName  string      `bun:"service_name,notnull" json:"serviceName"`
	ProvinceCode string      `bun:"province_code" json:"provinceCode"`
	ServiceType  ServiceType `bun:"service_type,notnull" json:"serviceType"`
	Address      string      `bun:"address" json:"address,omitempty"`
	CreatedAt    time.Time   `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID        string          `bun:"id,pk" json:"id"`
	ServiceID string          `bun:"service_id,notnull" json:"serviceId"`
	Name      string          `bun:"name,notnull" json:"name"`
	Term      string          `bun:"term" json:"term,omitempty"`
	Price     decimal.Decimal `bun:"price,type:numeric(16,4),notnull" json:"price"`
}

type Room struct {
	bun.BaseModel `bun:"table:rooms"`

	ID        string          `bun:"id,pk" json:"id"`
	ServiceID string          `bun:"service_id,notnull" json:"serviceId"`
	Type      string          `bun:"type" json:"type,omitempty"`
	Name      string          `bun:"name,notnull" json:"name"`
	Price     decimal.Decimal `bun:"price,type:numeric(16,4),notnull" json:"price"`
	Quantity  int             `bun:"quantity,notnull" json:"quantity"`
}

// ServiceDetails is a service with its bookable items, assembled by id.
type ServiceDetails struct {
	Service Service  `json:"service"`
	Tickets []Ticket `json:"tickets"`
	Rooms   []Room   `json:"rooms"`
}
