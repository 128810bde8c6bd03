package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "PENDING"
	OrderStatusSuccess OrderStatus = "SUCCESS"
	OrderStatusFailed  OrderStatus = "FAILED"
)

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusSuccess || s == OrderStatusFailed
}

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID          string          `bun:"order_id,pk" json:"orderId"`
	UserID           string          `bun:"user_id,notnull" json:"userId"`
	Status           OrderStatus     `bun:"status,notnull" json:"status"`
	TotalPrice       decimal.Decimal `bun:"total_price,type:numeric(16,4),notnull" json:"totalPrice"`
	DiscountPrice    decimal.Decimal `bun:"discount_price,type:numeric(16,4),notnull" json:"discountPrice"`
	FinalPrice       decimal.Decimal `bun:"final_price,type:numeric(16,4),notnull" json:"finalPrice"`
	Deposit          decimal.Decimal `bun:"deposit,type:numeric(16,4),notnull" json:"deposit"`
	GuestPhone       string          `bun:"guest_phone" json:"guestPhone,omitempty"`
	Note             string          `bun:"note" json:"note,omitempty"`
	PaymentRequestID string          `bun:"payment_request_id" json:"paymentRequestId,omitempty"`
	CreatedAt        time.Time       `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt        time.Time       `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`
}

// OrderedTicket is a priced snapshot of a catalog ticket.
type OrderedTicket struct {
	bun.BaseModel `bun:"table:ordered_tickets"`

	ID         string          `bun:"id,pk" json:"id"`
	OrderID    string          `bun:"order_id,notnull" json:"orderId"`
	TicketID   string          `bun:"ticket_id,notnull" json:"ticketId"`
	Amount     int             `bun:"amount,notnull" json:"amount"`
	Price      decimal.Decimal `bun:"price,type:numeric(16,4),notnull" json:"price"`
	ValidStart time.Time       `bun:"valid_start,nullzero" json:"validStart,omitempty"`
	ValidEnd   time.Time       `bun:"valid_end,nullzero" json:"validEnd,omitempty"`
	CreatedAt  time.Time       `bun:"created_at,notnull" json:"createdAt"`
}

// OrderedRoom is a priced snapshot of a catalog room.
type OrderedRoom struct {
	bun.BaseModel `bun:"table:ordered_rooms"`

	ID        string          `bun:"id,pk" json:"id"`
	OrderID   string          `bun:"order_id,notnull" json:"orderId"`
	RoomID    string          `bun:"room_id,notnull" json:"roomId"`
	Amount    int             `bun:"amount,notnull" json:"amount"`
	Price     decimal.Decimal `bun:"price,type:numeric(16,4),notnull" json:"price"`
	StartDate time.Time       `bun:"start_date,nullzero" json:"startDate,omitempty"`
	EndDate   time.Time       `bun:"end_date,nullzero" json:"endDate,omitempty"`
	CreatedAt time.Time       `bun:"created_at,notnull" json:"createdAt"`
}

// OrderDiscount links an order to a discount applied to it. Position keeps
// the caller's application order.
type OrderDiscount struct {
	bun.BaseModel `bun:"table:order_discounts"`

	OrderID    string `bun:"order_id,pk"`
	DiscountID string `bun:"discount_id,pk"`
	Position   int    `bun:"position,notnull"`
}

type LineRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type CreateOrderRequest struct {
	Tickets     []LineRequest `json:"tickets"`
	Rooms       []LineRequest `json:"rooms"`
	CheckIn     time.Time     `json:"checkIn"`
	CheckOut    time.Time     `json:"checkOut"`
	GuestPhone  string        `json:"guestPhone"`
	Note        string        `json:"note"`
	DiscountIDs []string      `json:"discountIds"`
}

type CreateOrderResponse struct {
	OrderID       string          `json:"orderId"`
	Status        OrderStatus     `json:"status"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	DiscountPrice decimal.Decimal `json:"discountPrice"`
	FinalPrice    decimal.Decimal `json:"finalPrice"`
	Deposit       decimal.Decimal `json:"deposit"`
	PayURL        string          `json:"payUrl,omitempty"`
}

// OrderWithLines is an order expanded with its line items by explicit query.
type OrderWithLines struct {
	Order       Order           `json:"order"`
	Tickets     []OrderedTicket `json:"tickets"`
	Rooms       []OrderedRoom   `json:"rooms"`
	DiscountIDs []string        `json:"discountIds"`
}

type OrderPage struct {
	Items []OrderWithLines `json:"items"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
	Total int              `json:"total"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
}
