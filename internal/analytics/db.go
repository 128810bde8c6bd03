package analytics

import (
	"context"
	"time"

	"ms-booking/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// DB handles analytics database operations
type DB struct {
	Bun *bun.DB
}

type StatusCount struct {
	Status models.OrderStatus `bun:"status" json:"status"`
	Count  int                `bun:"order_count" json:"count"`
}

// CountByStatus counts orders created in [from, to) per status.
func (db *DB) CountByStatus(ctx context.Context, from, to time.Time) ([]StatusCount, error) {
	var counts []StatusCount
	err := db.Bun.NewSelect().
		TableExpr("orders").
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS order_count").
		Where("created_at >= ? AND created_at < ?", from, to).
		GroupExpr("status").
		OrderExpr("status").
		Scan(ctx, &counts)
	return counts, err
}

type salesRow struct {
	OrderCount int                 `bun:"order_count"`
	Revenue    decimal.NullDecimal `bun:"revenue"`
}

// Sales returns the number and final-price sum of paid orders created in
// [from, to).
func (db *DB) Sales(ctx context.Context, from, to time.Time) (int, decimal.Decimal, error) {
	var row salesRow
	err := db.Bun.NewSelect().
		TableExpr("orders").
		ColumnExpr("COUNT(*) AS order_count").
		ColumnExpr("SUM(final_price) AS revenue").
		Where("status = ?", models.OrderStatusSuccess).
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(ctx, &row)
	if err != nil {
		return 0, decimal.Zero, err
	}
	if !row.Revenue.Valid {
		return row.OrderCount, decimal.Zero, nil
	}
	return row.OrderCount, row.Revenue.Decimal, nil
}

// ServiceRevenue is the line-item revenue of one service.
type ServiceRevenue struct {
	ServiceID string          `bun:"service_id" json:"serviceId"`
	Revenue   decimal.Decimal `bun:"revenue" json:"revenue"`
}

// RevenueByService sums the ticket and room line prices of paid orders in
// [from, to) per service. Room lines are counted at their list price.
func (db *DB) RevenueByService(ctx context.Context, from, to time.Time) ([]ServiceRevenue, error) {
	var tickets, rooms []ServiceRevenue
	err := db.Bun.NewSelect().
		TableExpr("ordered_tickets AS ot").
		Join("JOIN tickets AS t ON t.id = ot.ticket_id").
		Join("JOIN orders AS o ON o.order_id = ot.order_id").
		ColumnExpr("t.service_id").
		ColumnExpr("SUM(ot.price) AS revenue").
		Where("o.status = ?", models.OrderStatusSuccess).
		Where("o.created_at >= ? AND o.created_at < ?", from, to).
		GroupExpr("t.service_id").
		Scan(ctx, &tickets)
	if err != nil {
		return nil, err
	}

	err = db.Bun.NewSelect().
		TableExpr("ordered_rooms AS orm").
		Join("JOIN rooms AS r ON r.id = orm.room_id").
		Join("JOIN orders AS o ON o.order_id = orm.order_id").
		ColumnExpr("r.service_id").
		ColumnExpr("SUM(orm.price) AS revenue").
		Where("o.status = ?", models.OrderStatusSuccess).
		Where("o.created_at >= ? AND o.created_at < ?", from, to).
		GroupExpr("r.service_id").
		Scan(ctx, &rooms)
	if err != nil {
		return nil, err
	}

	return mergeRevenue(tickets, rooms), nil
}

// DiscountUsage tracks how often a discount was redeemed and by how much it
// lowered the orders it was applied to.
type DiscountUsage struct {
	DiscountID  string          `bun:"discount_id" json:"discountId"`
	Code        string          `bun:"code" json:"code"`
	UsageCount  int             `bun:"usage_count" json:"usageCount"`
	OrdersTotal decimal.Decimal `bun:"orders_total" json:"ordersDiscountTotal"`
}

// GetDiscountUsage covers paid orders created in [from, to).
func (db *DB) GetDiscountUsage(ctx context.Context, from, to time.Time) ([]DiscountUsage, error) {
	var usage []DiscountUsage
	err := db.Bun.NewSelect().
		TableExpr("order_discounts AS od").
		Join("JOIN discounts AS d ON d.id = od.discount_id").
		Join("JOIN orders AS o ON o.order_id = od.order_id").
		ColumnExpr("od.discount_id").
		ColumnExpr("d.code").
		ColumnExpr("COUNT(*) AS usage_count").
		ColumnExpr("SUM(o.discount_price) AS orders_total").
		Where("o.status = ?", models.OrderStatusSuccess).
		Where("o.created_at >= ? AND o.created_at < ?", from, to).
		GroupExpr("od.discount_id, d.code").
		OrderExpr("usage_count DESC, d.code").
		Scan(ctx, &usage)
	return usage, err
}
