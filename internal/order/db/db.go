package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- ORDERS ----------------

// CreateOrder inserts the order, its line items and its discount links in
// one transaction. Nothing is stored if any insert fails.
func (d *DB) CreateOrder(ctx context.Context, order *models.Order, tickets []models.OrderedTicket, rooms []models.OrderedRoom, discountIDs []string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		if len(tickets) > 0 {
			if _, err := tx.NewInsert().Model(&tickets).Exec(ctx); err != nil {
				return err
			}
		}
		if len(rooms) > 0 {
			if _, err := tx.NewInsert().Model(&rooms).Exec(ctx); err != nil {
				return err
			}
		}
		if len(discountIDs) > 0 {
			links := make([]models.OrderDiscount, len(discountIDs))
			for i, id := range discountIDs {
				links[i] = models.OrderDiscount{OrderID: order.OrderID, DiscountID: id, Position: i}
			}
			if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetOrderByID → fetch one order by its ID
func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.OrderNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderWithLines retrieves an order and its line items and discount ids
func (d *DB) GetOrderWithLines(ctx context.Context, id string) (*models.OrderWithLines, error) {
	order, err := d.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := d.attachLines(ctx, []models.Order{*order})
	if err != nil {
		return nil, err
	}
	return &result[0], nil
}

// ListOrdersWithLinesByUserID → one page of a user's orders, newest first,
// plus the user's total order count
func (d *DB) ListOrdersWithLinesByUserID(ctx context.Context, userID string, limit, offset int) ([]models.OrderWithLines, int, error) {
	var orders []models.Order
	total, err := d.Bun.NewSelect().
		Model(&orders).
		Where("user_id = ?", userID).
		Order("created_at DESC", "order_id").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	if len(orders) == 0 {
		return []models.OrderWithLines{}, total, nil
	}

	result, err := d.attachLines(ctx, orders)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// attachLines loads tickets, rooms and discount links for all orders with one
// query per table and groups them by order id.
func (d *DB) attachLines(ctx context.Context, orders []models.Order) ([]models.OrderWithLines, error) {
	orderIDs := make([]string, len(orders))
	for i, order := range orders {
		orderIDs[i] = order.OrderID
	}

	var tickets []models.OrderedTicket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("order_id IN (?)", bun.In(orderIDs)).
		Order("order_id", "created_at", "id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	var rooms []models.OrderedRoom
	err = d.Bun.NewSelect().
		Model(&rooms).
		Where("order_id IN (?)", bun.In(orderIDs)).
		Order("order_id", "created_at", "id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	var links []models.OrderDiscount
	err = d.Bun.NewSelect().
		Model(&links).
		Where("order_id IN (?)", bun.In(orderIDs)).
		Order("order_id", "position").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	ticketsByOrder := make(map[string][]models.OrderedTicket)
	for _, t := range tickets {
		ticketsByOrder[t.OrderID] = append(ticketsByOrder[t.OrderID], t)
	}
	roomsByOrder := make(map[string][]models.OrderedRoom)
	for _, r := range rooms {
		roomsByOrder[r.OrderID] = append(roomsByOrder[r.OrderID], r)
	}
	discountsByOrder := make(map[string][]string)
	for _, l := range links {
		discountsByOrder[l.OrderID] = append(discountsByOrder[l.OrderID], l.DiscountID)
	}

	result := make([]models.OrderWithLines, len(orders))
	for i, order := range orders {
		result[i] = models.OrderWithLines{
			Order:       order,
			Tickets:     ticketsByOrder[order.OrderID],
			Rooms:       roomsByOrder[order.OrderID],
			DiscountIDs: discountsByOrder[order.OrderID],
		}
		if result[i].Tickets == nil {
			result[i].Tickets = []models.OrderedTicket{}
		}
		if result[i].Rooms == nil {
			result[i].Rooms = []models.OrderedRoom{}
		}
		if result[i].DiscountIDs == nil {
			result[i].DiscountIDs = []string{}
		}
	}
	return result, nil
}

// ---------------- STATUS ----------------

// TransitionStatus moves a PENDING order to the given status. It reports
// false when the order was no longer PENDING, in which case nothing changes.
// A move to SUCCESS redeems the order's discounts in the same transaction.
func (d *DB) TransitionStatus(ctx context.Context, orderID string, to models.OrderStatus) (bool, error) {
	changed := false
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Order)(nil)).
			Set("status = ?", to).
			Set("updated_at = ?", time.Now().UTC()).
			Where("order_id = ?", orderID).
			Where("status = ?", models.OrderStatusPending).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		changed = true

		if to != models.OrderStatusSuccess {
			return nil
		}

		var discountIDs []string
		err = tx.NewSelect().
			Model((*models.OrderDiscount)(nil)).
			Column("discount_id").
			Where("order_id = ?", orderID).
			Scan(ctx, &discountIDs)
		if err != nil {
			return err
		}
		if len(discountIDs) == 0 {
			return nil
		}

		_, err = tx.NewUpdate().
			Model((*models.Discount)(nil)).
			Set("quantity = quantity - 1").
			Where("id IN (?)", bun.In(discountIDs)).
			Where("quantity > 0").
			Exec(ctx)
		return err
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// SetPaymentRequestID records the provider request id of the latest payment
// link created for the order.
func (d *DB) SetPaymentRequestID(ctx context.Context, orderID, requestID string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("payment_request_id = ?", requestID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("order_id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.OrderNotFound(orderID)
	}
	return nil
}
