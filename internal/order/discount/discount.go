package discount

import (
	"context"
	"fmt"
	"time"

	"ms-booking/internal/apperror"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Store interface {
	GetDiscountByID(ctx context.Context, id string) (*models.Discount, error)
	FindDiscountByCode(ctx context.Context, code string) (*models.Discount, error)
	ListDiscounts(ctx context.Context) ([]models.Discount, error)
	ListDiscountsByApplyType(ctx context.Context, applyType models.ApplyType) ([]models.Discount, error)
	ListDiscountsByServiceID(ctx context.Context, serviceID string) ([]models.Discount, error)
	ListDiscountsByProvinceCode(ctx context.Context, code string) ([]models.Discount, error)
	ListDiscountsByCategory(ctx context.Context, category models.ServiceType) ([]models.Discount, error)
	CreateDiscount(ctx context.Context, discount *models.Discount) error
	UpdateDiscount(ctx context.Context, discount *models.Discount) error
	DeleteDiscount(ctx context.Context, id string) error
	IsRedeemed(ctx context.Context, id string) (bool, error)
}

// CatalogChecker verifies scope links point at real listings.
type CatalogChecker interface {
	FindServiceByID(ctx context.Context, id string) (*models.Service, error)
	FindProvinceByCode(ctx context.Context, code string) (*models.Province, error)
}

// DiscountService resolves, validates and applies discounts, and carries the
// admin operations on them.
type DiscountService struct {
	store   Store
	catalog CatalogChecker
	logger  *logger.Logger
	now     func() time.Time
}

func NewDiscountService(store Store, catalog CatalogChecker, log *logger.Logger) *DiscountService {
	return &DiscountService{
		store:   store,
		catalog: catalog,
		logger:  log,
		now:     time.Now,
	}
}

// SatisfiedQuery narrows ResolveSatisfiedDiscounts. Every field is optional.
type SatisfiedQuery struct {
	ServiceID    string
	ProvinceCode string
	Category     models.ServiceType
}

// OrderScope describes the order a discount is being applied to.
type OrderScope struct {
	ServiceIDs    []string
	ProvinceCodes []string
	Categories    []models.ServiceType
	At            time.Time
}

type AppliedDiscount struct {
	DiscountID string          `json:"discountId"`
	Amount     decimal.Decimal `json:"amount"`
}

type Application struct {
	Total   decimal.Decimal
	Applied []AppliedDiscount
}

// ResolveSatisfiedDiscounts returns ALL-scoped discounts plus those linked to
// the given service, province or category. No match yields an empty slice.
func (s *DiscountService) ResolveSatisfiedDiscounts(ctx context.Context, q SatisfiedQuery) ([]models.Discount, error) {
	result := []models.Discount{}
	seen := make(map[string]bool)
	add := func(discounts []models.Discount) {
		for _, d := range discounts {
			if !seen[d.ID] {
				seen[d.ID] = true
				result = append(result, d)
			}
		}
	}

	global, err := s.store.ListDiscountsByApplyType(ctx, models.ApplyAll)
	if err != nil {
		return nil, fmt.Errorf("list global discounts: %w", err)
	}
	add(global)

	if q.ServiceID != "" {
		byService, err := s.store.ListDiscountsByServiceID(ctx, q.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("list discounts for service %s: %w", q.ServiceID, err)
		}
		add(byService)
	}

	if q.ProvinceCode != "" {
		byProvince, err := s.store.ListDiscountsByProvinceCode(ctx, q.ProvinceCode)
		if err != nil {
			return nil, fmt.Errorf("list discounts for province %s: %w", q.ProvinceCode, err)
		}
		add(byProvince)
	}

	if q.Category != "" {
		byCategory, err := s.store.ListDiscountsByCategory(ctx, q.Category)
		if err != nil {
			return nil, fmt.Errorf("list discounts for category %s: %w", q.Category, err)
		}
		add(byCategory)
	}

	s.logger.Debug("DISCOUNT", fmt.Sprintf("Resolved %d discounts for service=%q province=%q category=%q", len(result), q.ServiceID, q.ProvinceCode, q.Category))
	return result, nil
}

// ApplyDiscounts validates each discount in input order and accumulates the
// reduction. A fixed amount never exceeds what is left of the subtotal and a
// percentage is taken on the full subtotal, capped by its maximum. The total
// never exceeds the subtotal.
func (s *DiscountService) ApplyDiscounts(ctx context.Context, subtotal decimal.Decimal, discountIDs []string, scope OrderScope) (*Application, error) {
	result := &Application{Total: decimal.Zero, Applied: []AppliedDiscount{}}
	if len(discountIDs) == 0 {
		return result, nil
	}
	if !subtotal.IsPositive() {
		return nil, apperror.NewValidation("discounts require a positive order subtotal")
	}

	at := scope.At
	if at.IsZero() {
		at = s.now()
	}

	seen := make(map[string]bool, len(discountIDs))
	remaining := subtotal

	for _, id := range discountIDs {
		if seen[id] {
			return nil, apperror.NewValidation(fmt.Sprintf("discount %s listed more than once", id))
		}
		seen[id] = true

		discount, err := s.store.GetDiscountByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := checkEligibility(discount, subtotal, scope, at); err != nil {
			s.logger.Info("DISCOUNT", fmt.Sprintf("Rejected discount %s: %v", id, err))
			return nil, err
		}

		rule, err := discount.Rule()
		if err != nil {
			return nil, apperror.NewInternal("discount is misconfigured", err)
		}

		var amount decimal.Decimal
		switch r := rule.(type) {
		case models.FixedPriceRule:
			amount = r.Amount
		case models.PercentageRule:
			amount = subtotal.Mul(r.Percent).Div(hundred).Round(2)
			if amount.GreaterThan(r.Cap) {
				amount = r.Cap
			}
		}
		if amount.GreaterThan(remaining) {
			amount = remaining
		}

		remaining = remaining.Sub(amount)
		result.Applied = append(result.Applied, AppliedDiscount{DiscountID: id, Amount: amount})
	}

	result.Total = subtotal.Sub(remaining)
	s.logger.Info("DISCOUNT", fmt.Sprintf("Applied %d discounts, reduction %s on subtotal %s", len(result.Applied), result.Total, subtotal))
	return result, nil
}

func checkEligibility(d *models.Discount, subtotal decimal.Decimal, scope OrderScope, at time.Time) error {
	if at.Before(d.StartDate) || at.After(d.EndDate) {
		return apperror.DiscountExpired(d.ID)
	}
	if d.Quantity <= 0 {
		return apperror.DiscountExhausted(d.ID)
	}
	if subtotal.LessThan(d.MinSpend) {
		return apperror.DiscountBelowMinSpend(d.ID, d.MinSpend.String())
	}
	if !inScope(d, scope) {
		return apperror.DiscountNotApplicable(d.ID)
	}
	return nil
}

func inScope(d *models.Discount, scope OrderScope) bool {
	switch d.ApplyType {
	case models.ApplyAll:
		return true
	case models.ApplyService:
		return intersects(d.ServiceIDs, scope.ServiceIDs)
	case models.ApplyProvince:
		return intersects(d.ProvinceCodes, scope.ProvinceCodes)
	case models.ApplyCategory:
		for _, c := range scope.Categories {
			if c == d.CategoryType {
				return true
			}
		}
	}
	return false
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

// ---------------- ADMIN ----------------

func (s *DiscountService) CreateDiscount(ctx context.Context, req models.DiscountRequest) (*models.Discount, error) {
	discount := &models.Discount{ID: uuid.NewString(), CreatedAt: s.now()}
	if err := s.fill(ctx, discount, req); err != nil {
		return nil, err
	}

	existing, err := s.store.FindDiscountByCode(ctx, discount.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.NewValidation(fmt.Sprintf("discount code %s is already in use", discount.Code))
	}

	if err := s.store.CreateDiscount(ctx, discount); err != nil {
		return nil, fmt.Errorf("create discount: %w", err)
	}
	s.logger.Info("DISCOUNT", fmt.Sprintf("Created discount %s (%s, %s)", discount.ID, discount.DiscountType, discount.ApplyType))
	return discount, nil
}

func (s *DiscountService) UpdateDiscount(ctx context.Context, id string, req models.DiscountRequest) (*models.Discount, error) {
	discount, err := s.store.GetDiscountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fill(ctx, discount, req); err != nil {
		return nil, err
	}

	existing, err := s.store.FindDiscountByCode(ctx, discount.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != id {
		return nil, apperror.NewValidation(fmt.Sprintf("discount code %s is already in use", discount.Code))
	}

	if err := s.store.UpdateDiscount(ctx, discount); err != nil {
		return nil, fmt.Errorf("update discount %s: %w", id, err)
	}
	s.logger.Info("DISCOUNT", fmt.Sprintf("Updated discount %s", id))
	return discount, nil
}

func (s *DiscountService) GetDiscount(ctx context.Context, id string) (*models.Discount, error) {
	return s.store.GetDiscountByID(ctx, id)
}

func (s *DiscountService) ListDiscounts(ctx context.Context) ([]models.Discount, error) {
	return s.store.ListDiscounts(ctx)
}

// DeleteDiscount removes a discount no order has used. Redeemed discounts
// stay as part of the financial record.
func (s *DiscountService) DeleteDiscount(ctx context.Context, id string) error {
	redeemed, err := s.store.IsRedeemed(ctx, id)
	if err != nil {
		return err
	}
	if redeemed {
		return apperror.New(apperror.StateConflict, fmt.Sprintf("discount %s is referenced by orders", id), nil)
	}
	if err := s.store.DeleteDiscount(ctx, id); err != nil {
		return err
	}
	s.logger.Info("DISCOUNT", fmt.Sprintf("Deleted discount %s", id))
	return nil
}

// fill validates req and copies it onto d, leaving exactly one scope link set.
func (s *DiscountService) fill(ctx context.Context, d *models.Discount, req models.DiscountRequest) error {
	if req.Name == "" || req.Code == "" {
		return apperror.NewValidation("name and code are required")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() || !req.StartDate.Before(req.EndDate) {
		return apperror.NewValidation("startDate must be before endDate")
	}
	if req.Quantity < 0 {
		return apperror.NewValidation("quantity cannot be negative")
	}
	if req.MinSpend.IsNegative() {
		return apperror.NewValidation("minSpend cannot be negative")
	}

	d.Name = req.Name
	d.Code = req.Code
	d.StartDate = req.StartDate
	d.EndDate = req.EndDate
	d.Quantity = req.Quantity
	d.MinSpend = req.MinSpend
	d.FixedPrice = decimal.NullDecimal{}
	d.Percentage = decimal.NullDecimal{}
	d.MaxDiscountAmount = decimal.NullDecimal{}

	switch req.DiscountType {
	case models.DiscountTypeFixed:
		if req.FixedPrice == nil || !req.FixedPrice.IsPositive() {
			return apperror.NewValidation("fixedPrice must be positive for FIXED discounts")
		}
		d.FixedPrice = decimal.NewNullDecimal(*req.FixedPrice)
	case models.DiscountTypePercentage:
		if req.Percentage == nil || !req.Percentage.IsPositive() || req.Percentage.GreaterThan(hundred) {
			return apperror.NewValidation("percentage must be in (0, 100] for PERCENTAGE discounts")
		}
		if req.MaxDiscountAmount == nil || !req.MaxDiscountAmount.IsPositive() {
			return apperror.NewValidation("maxDiscountAmount must be positive for PERCENTAGE discounts")
		}
		d.Percentage = decimal.NewNullDecimal(*req.Percentage)
		d.MaxDiscountAmount = decimal.NewNullDecimal(*req.MaxDiscountAmount)
	default:
		return apperror.NewValidation("missing or unknown discountType")
	}
	d.DiscountType = req.DiscountType

	d.ServiceIDs = nil
	d.ProvinceCodes = nil
	d.CategoryType = ""

	switch req.ApplyType {
	case models.ApplyAll:
	case models.ApplyService:
		if len(req.ServiceList) == 0 {
			return apperror.NewValidation("serviceList is required for SERVICE discounts")
		}
		for _, id := range req.ServiceList {
			if _, err := s.catalog.FindServiceByID(ctx, id); err != nil {
				return err
			}
		}
		d.ServiceIDs = dedupe(req.ServiceList)
	case models.ApplyProvince:
		if len(req.ProvinceList) == 0 {
			return apperror.NewValidation("provinceList is required for PROVINCE discounts")
		}
		for _, code := range req.ProvinceList {
			if _, err := s.catalog.FindProvinceByCode(ctx, code); err != nil {
				return err
			}
		}
		d.ProvinceCodes = dedupe(req.ProvinceList)
	case models.ApplyCategory:
		if !req.CategoryType.Valid() {
			return apperror.NewValidation("categoryType is required for CATEGORY discounts")
		}
		d.CategoryType = req.CategoryType
	default:
		return apperror.NewValidation("invalid apply type")
	}
	d.ApplyType = req.ApplyType
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
