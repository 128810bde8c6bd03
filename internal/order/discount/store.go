package discount

import (
	"context"
	"database/sql"
	"errors"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

// DB persists discounts and their scope links.
type DB struct {
	Bun *bun.DB
}

func (d *DB) GetDiscountByID(ctx context.Context, id string) (*models.Discount, error) {
	var discount models.Discount
	err := d.Bun.NewSelect().
		Model(&discount).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.DiscountNotFound(id)
	}
	if err != nil {
		return nil, err
	}

	list := []models.Discount{discount}
	if err := d.loadLinks(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (d *DB) FindDiscountByCode(ctx context.Context, code string) (*models.Discount, error) {
	var discount models.Discount
	err := d.Bun.NewSelect().
		Model(&discount).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

func (d *DB) ListDiscounts(ctx context.Context) ([]models.Discount, error) {
	return d.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery { return q })
}

func (d *DB) ListDiscountsByApplyType(ctx context.Context, applyType models.ApplyType) ([]models.Discount, error) {
	return d.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("apply_type = ?", applyType)
	})
}

func (d *DB) ListDiscountsByServiceID(ctx context.Context, serviceID string) ([]models.Discount, error) {
	return d.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("apply_type = ?", models.ApplyService).
			Where("id IN (SELECT discount_id FROM discount_services WHERE service_id = ?)", serviceID)
	})
}

func (d *DB) ListDiscountsByProvinceCode(ctx context.Context, code string) ([]models.Discount, error) {
	return d.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("apply_type = ?", models.ApplyProvince).
			Where("id IN (SELECT discount_id FROM discount_provinces WHERE province_code = ?)", code)
	})
}

func (d *DB) ListDiscountsByCategory(ctx context.Context, category models.ServiceType) ([]models.Discount, error) {
	return d.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("apply_type = ?", models.ApplyCategory).
			Where("category_type = ?", category)
	})
}

func (d *DB) list(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]models.Discount, error) {
	discounts := []models.Discount{}
	err := filter(d.Bun.NewSelect().Model(&discounts)).
		Order("created_at", "id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if err := d.loadLinks(ctx, discounts); err != nil {
		return nil, err
	}
	return discounts, nil
}

// loadLinks fills ServiceIDs and ProvinceCodes with two batched queries.
func (d *DB) loadLinks(ctx context.Context, discounts []models.Discount) error {
	if len(discounts) == 0 {
		return nil
	}

	ids := make([]string, len(discounts))
	index := make(map[string]int, len(discounts))
	for i, discount := range discounts {
		ids[i] = discount.ID
		index[discount.ID] = i
	}

	var serviceLinks []models.DiscountServiceLink
	err := d.Bun.NewSelect().
		Model(&serviceLinks).
		Where("discount_id IN (?)", bun.In(ids)).
		Order("discount_id", "service_id").
		Scan(ctx)
	if err != nil {
		return err
	}
	for _, link := range serviceLinks {
		i := index[link.DiscountID]
		discounts[i].ServiceIDs = append(discounts[i].ServiceIDs, link.ServiceID)
	}

	var provinceLinks []models.DiscountProvinceLink
	err = d.Bun.NewSelect().
		Model(&provinceLinks).
		Where("discount_id IN (?)", bun.In(ids)).
		Order("discount_id", "province_code").
		Scan(ctx)
	if err != nil {
		return err
	}
	for _, link := range provinceLinks {
		i := index[link.DiscountID]
		discounts[i].ProvinceCodes = append(discounts[i].ProvinceCodes, link.ProvinceCode)
	}
	return nil
}

// CreateDiscount inserts the discount and its scope links atomically.
func (d *DB) CreateDiscount(ctx context.Context, discount *models.Discount) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(discount).Exec(ctx); err != nil {
			return err
		}
		return insertLinks(ctx, tx, discount)
	})
}

// UpdateDiscount rewrites the discount row and replaces its scope links.
func (d *DB) UpdateDiscount(ctx context.Context, discount *models.Discount) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(discount).
			Column("name", "code", "start_date", "end_date", "quantity", "min_spend", "apply_type",
				"category_type", "discount_type", "fixed_price", "percentage", "max_discount_amount").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperror.DiscountNotFound(discount.ID)
		}
		if err := deleteLinks(ctx, tx, discount.ID); err != nil {
			return err
		}
		return insertLinks(ctx, tx, discount)
	})
}

func (d *DB) DeleteDiscount(ctx context.Context, id string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := deleteLinks(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*models.Discount)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperror.DiscountNotFound(id)
		}
		return nil
	})
}

// IsRedeemed reports whether any order references the discount.
func (d *DB) IsRedeemed(ctx context.Context, id string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.OrderDiscount)(nil)).
		Where("discount_id = ?", id).
		Exists(ctx)
}

func insertLinks(ctx context.Context, tx bun.Tx, discount *models.Discount) error {
	if len(discount.ServiceIDs) > 0 {
		links := make([]models.DiscountServiceLink, len(discount.ServiceIDs))
		for i, serviceID := range discount.ServiceIDs {
			links[i] = models.DiscountServiceLink{DiscountID: discount.ID, ServiceID: serviceID}
		}
		if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
			return err
		}
	}
	if len(discount.ProvinceCodes) > 0 {
		links := make([]models.DiscountProvinceLink, len(discount.ProvinceCodes))
		for i, code := range discount.ProvinceCodes {
			links[i] = models.DiscountProvinceLink{DiscountID: discount.ID, ProvinceCode: code}
		}
		if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func deleteLinks(ctx context.Context, tx bun.Tx, discountID string) error {
	if _, err := tx.NewDelete().Model((*models.DiscountServiceLink)(nil)).Where("discount_id = ?", discountID).Exec(ctx); err != nil {
		return err
	}
	_, err := tx.NewDelete().Model((*models.DiscountProvinceLink)(nil)).Where("discount_id = ?", discountID).Exec(ctx)
	return err
}
