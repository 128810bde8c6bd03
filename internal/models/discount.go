package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type DiscountType string

const (
	DiscountTypeFixed      DiscountType = "FIXED"
	DiscountTypePercentage DiscountType = "PERCENTAGE"
)

// ApplyType is the dimension a discount's eligibility is restricted along.
type ApplyType string

const (
	ApplyAll      ApplyType = "ALL"
	ApplyService  ApplyType = "SERVICE"
	ApplyCategory ApplyType = "CATEGORY"
	ApplyProvince ApplyType = "PROVINCE"
)

func (a ApplyType) Valid() bool {
	switch a {
	case ApplyAll, ApplyService, ApplyCategory, ApplyProvince:
		return true
	}
	return false
}

// Discount is stored in one table; DiscountType selects which of the nullable
// rule columns is meaningful. Use Rule to get the typed variant.
type Discount struct {
	bun.BaseModel `bun:"table:discounts"`

	ID           string          `bun:"id,pk" json:"id"`
	Name         string          `bun:"name,notnull" json:"name"`
	Code         string          `bun:"code,unique,notnull" json:"code"`
	StartDate    time.Time       `bun:"start_date,notnull" json:"startDate"`
	EndDate      time.Time       `bun:"end_date,notnull" json:"endDate"`
	Quantity     int64           `bun:"quantity,notnull" json:"quantity"`
	MinSpend     decimal.Decimal `bun:"min_spend,type:numeric(16,4),notnull" json:"minSpend"`
	ApplyType    ApplyType       `bun:"apply_type,notnull" json:"applyType"`
	CategoryType ServiceType     `bun:"category_type,nullzero" json:"categoryType,omitempty"`

	DiscountType      DiscountType        `bun:"discount_type,notnull" json:"discountType"`
	FixedPrice        decimal.NullDecimal `bun:"fixed_price,type:numeric(16,4)" json:"fixedPrice,omitempty"`
	Percentage        decimal.NullDecimal `bun:"percentage,type:numeric(7,4)" json:"percentage,omitempty"`
	MaxDiscountAmount decimal.NullDecimal `bun:"max_discount_amount,type:numeric(16,4)" json:"maxDiscountAmount,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`

	// Scope links, loaded explicitly by the store.
	ServiceIDs    []string `bun:"-" json:"serviceIds,omitempty"`
	ProvinceCodes []string `bun:"-" json:"provinceCodes,omitempty"`
}

// DiscountRule is the variant payload of a Discount.
type DiscountRule interface {
	discountRule()
}

type FixedPriceRule struct {
	Amount decimal.Decimal
}

type PercentageRule struct {
	Percent decimal.Decimal
	Cap     decimal.Decimal
}

func (FixedPriceRule) discountRule() {}
func (PercentageRule) discountRule() {}

func (d *Discount) Rule() (DiscountRule, error) {
	switch d.DiscountType {
	case DiscountTypeFixed:
		if !d.FixedPrice.Valid {
			return nil, fmt.Errorf("discount %s: fixed price missing", d.ID)
		}
		return FixedPriceRule{Amount: d.FixedPrice.Decimal}, nil
	case DiscountTypePercentage:
		if !d.Percentage.Valid || !d.MaxDiscountAmount.Valid {
			return nil, fmt.Errorf("discount %s: percentage or cap missing", d.ID)
		}
		return PercentageRule{Percent: d.Percentage.Decimal, Cap: d.MaxDiscountAmount.Decimal}, nil
	default:
		return nil, fmt.Errorf("discount %s: unsupported discount type %q", d.ID, d.DiscountType)
	}
}

type DiscountServiceLink struct {
	bun.BaseModel `bun:"table:discount_services"`

	DiscountID string `bun:"discount_id,pk"`
	ServiceID  string `bun:"service_id,pk"`
}

type DiscountProvinceLink struct {
	bun.BaseModel `bun:"table:discount_provinces"`

	DiscountID   string `bun:"discount_id,pk"`
	ProvinceCode string `bun:"province_code,pk"`
}

// DiscountRequest is the admin payload for creating or updating a discount.
type DiscountRequest struct {
	Name              string           `json:"name"`
	Code              string           `json:"code"`
	StartDate         time.Time        `json:"startDate"`
	EndDate           time.Time        `json:"endDate"`
	Quantity          int64            `json:"quantity"`
	MinSpend          decimal.Decimal  `json:"minSpend"`
	ApplyType         ApplyType        `json:"applyType"`
	ServiceList       []string         `json:"serviceList,omitempty"`
	CategoryType      ServiceType      `json:"categoryType,omitempty"`
	ProvinceList      []string         `json:"provinceList,omitempty"`
	DiscountType      DiscountType     `json:"discountType"`
	FixedPrice        *decimal.Decimal `json:"fixedPrice,omitempty"`
	Percentage        *decimal.Decimal `json:"percentage,omitempty"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount,omitempty"`
}
