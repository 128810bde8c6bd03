package discount

import (
	"context"
	"errors"
	"testing"
	"time"

	"ms-booking/internal/apperror"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetDiscountByID(ctx context.Context, id string) (*models.Discount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Discount), args.Error(1)
}

func (m *MockStore) FindDiscountByCode(ctx context.Context, code string) (*models.Discount, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Discount), args.Error(1)
}

func (m *MockStore) ListDiscounts(ctx context.Context) ([]models.Discount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Discount), args.Error(1)
}

func (m *MockStore) ListDiscountsByApplyType(ctx context.Context, applyType models.ApplyType) ([]models.Discount, error) {
	args := m.Called(ctx, applyType)
	return args.Get(0).([]models.Discount), args.Error(1)
}

func (m *MockStore) ListDiscountsByServiceID(ctx context.Context, serviceID string) ([]models.Discount, error) {
	args := m.Called(ctx, serviceID)
	return args.Get(0).([]models.Discount), args.Error(1)
}

func (m *MockStore) ListDiscountsByProvinceCode(ctx context.Context, code string) ([]models.Discount, error) {
	args := m.Called(ctx, code)
	return args.Get(0).([]models.Discount), args.Error(1)
}

func (m *MockStore) ListDiscountsByCategory(ctx context.Context, category models.ServiceType) ([]models.Discount, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]models.Discount), args.Error(1)
}

func (m *MockStore) CreateDiscount(ctx context.Context, discount *models.Discount) error {
	return m.Called(ctx, discount).Error(0)
}

func (m *MockStore) UpdateDiscount(ctx context.Context, discount *models.Discount) error {
	return m.Called(ctx, discount).Error(0)
}

func (m *MockStore) DeleteDiscount(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) IsRedeemed(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type stubCatalog struct {
	services  map[string]bool
	provinces map[string]bool
}

func (c stubCatalog) FindServiceByID(_ context.Context, id string) (*models.Service, error) {
	if c.services[id] {
		return &models.Service{ID: id}, nil
	}
	return nil, apperror.CatalogItemNotFound("service", id)
}

func (c stubCatalog) FindProvinceByCode(_ context.Context, code string) (*models.Province, error) {
	if c.provinces[code] {
		return &models.Province{Code: code}, nil
	}
	return nil, apperror.CatalogItemNotFound("province", code)
}

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(store Store) *DiscountService {
	s := NewDiscountService(store, stubCatalog{services: map[string]bool{"svc-1": true}, provinces: map[string]bool{"48": true}}, logger.Discard())
	s.now = func() time.Time { return now }
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixed(id string, amount string) *models.Discount {
	return &models.Discount{
		ID:           id,
		StartDate:    now.Add(-24 * time.Hour),
		EndDate:      now.Add(24 * time.Hour),
		Quantity:     10,
		ApplyType:    models.ApplyAll,
		DiscountType: models.DiscountTypeFixed,
		FixedPrice:   decimal.NewNullDecimal(dec(amount)),
	}
}

func percentage(id string, pct, maxAmount string) *models.Discount {
	return &models.Discount{
		ID:                id,
		StartDate:         now.Add(-24 * time.Hour),
		EndDate:           now.Add(24 * time.Hour),
		Quantity:          10,
		ApplyType:         models.ApplyAll,
		DiscountType:      models.DiscountTypePercentage,
		Percentage:        decimal.NewNullDecimal(dec(pct)),
		MaxDiscountAmount: decimal.NewNullDecimal(dec(maxAmount)),
	}
}

func TestApplyFixedDiscount(t *testing.T) {
	store := new(MockStore)
	store.On("GetDiscountByID", mock.Anything, "d-fixed").Return(fixed("d-fixed", "10"), nil)

	res, err := newService(store).ApplyDiscounts(context.Background(), dec("100"), []string{"d-fixed"}, OrderScope{})
	require.NoError(t, err)
	assert.True(t, res.Total.Equal(dec("10")), res.Total.String())
	require.Len(t, res.Applied, 1)
	store.AssertExpectations(t)
}

func TestApplyPercentageDiscountIsCapped(t *testing.T) {
	store := new(MockStore)
	store.On("GetDiscountByID", mock.Anything, "d-pct").Return(percentage("d-pct", "20", "15"), nil)

	res, err := newService(store).ApplyDiscounts(context.Background(), dec("100"), []string{"d-pct"}, OrderScope{})
	require.NoError(t, err)
	assert.True(t, res.Total.Equal(dec("15")), res.Total.String())
}

func TestApplyPercentageBelowCap(t *testing.T) {
	store := new(MockStore)
	store.On("GetDiscountByID", mock.Anything, "d-pct").Return(percentage("d-pct", "12.5", "50"), nil)

	res, err := newService(store).ApplyDiscounts(context.Background(), dec("80"), []string{"d-pct"}, OrderScope{})
	require.NoError(t, err)
	assert.True(t, res.Total.Equal(dec("10")), res.Total.String())
}

func TestApplyStackedDiscountsNeverExceedSubtotal(t *testing.T) {
	store := new(MockStore)
	store.On("GetDiscountByID", mock.Anything, "d-pct").Return(percentage("d-pct", "50", "40"), nil)
	store.On("GetDiscountByID", mock.Anything, "d-fixed").Return(fixed("d-fixed", "70"), nil)

	res, err := newService(store).ApplyDiscounts(context.Background(), dec("100"), []string{"d-pct", "d-fixed"}, OrderScope{})
	require.NoError(t, err)
	assert.True(t, res.Total.Equal(dec("100")), res.Total.String())
	assert.True(t, res.Applied[0].Amount.Equal(dec("40")))
	assert.True(t, res.Applied[1].Amount.Equal(dec("60")))
}

func TestApplyNoDiscounts(t *testing.T) {
	res, err := newService(new(MockStore)).ApplyDiscounts(context.Background(), dec("100"), nil, OrderScope{})
	require.NoError(t, err)
	assert.True(t, res.Total.IsZero())
}

func TestApplyRejections(t *testing.T) {
	expired := fixed("d-expired", "5")
	expired.EndDate = now.Add(-time.Hour)

	exhausted := fixed("d-exhausted", "5")
	exhausted.Quantity = 0

	minSpend := fixed("d-min", "5")
	minSpend.MinSpend = dec("500")

	scoped := fixed("d-scoped", "5")
	scoped.ApplyType = models.ApplyService
	scoped.ServiceIDs = []string{"svc-other"}

	cases := []struct {
		name     string
		discount *models.Discount
		lookup   error
		want     error
	}{
		{"not found", nil, apperror.DiscountNotFound("d-missing"), apperror.ErrDiscountNotFound},
		{"expired", expired, nil, apperror.ErrDiscountExpired},
		{"exhausted", exhausted, nil, apperror.ErrDiscountExhausted},
		{"below min spend", minSpend, nil, apperror.ErrDiscountBelowMinSpend},
		{"out of scope", scoped, nil, apperror.ErrDiscountNotApplicable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := new(MockStore)
			id := "d-missing"
			if tc.discount != nil {
				id = tc.discount.ID
				store.On("GetDiscountByID", mock.Anything, id).Return(tc.discount, nil)
			} else {
				store.On("GetDiscountByID", mock.Anything, id).Return(nil, tc.lookup)
			}

			_, err := newService(store).ApplyDiscounts(context.Background(), dec("100"), []string{id}, OrderScope{ServiceIDs: []string{"svc-1"}})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), err.Error())
		})
	}
}

func TestApplyRejectsDuplicateIDs(t *testing.T) {
	store := new(MockStore)
	store.On("GetDiscountByID", mock.Anything, "d-fixed").Return(fixed("d-fixed", "10"), nil)

	_, err := newService(store).ApplyDiscounts(context.Background(), dec("100"), []string{"d-fixed", "d-fixed"}, OrderScope{})
	require.Error(t, err)
	assert.Equal(t, apperror.Validation, apperror.CategoryOf(err))
}

func TestApplyScopedDiscounts(t *testing.T) {
	byProvince := fixed("d-prov", "5")
	byProvince.ApplyType = models.ApplyProvince
	byProvince.ProvinceCodes = []string{"48"}

	byCategory := fixed("d-cat", "5")
	byCategory.ApplyType = models.ApplyCategory
	byCategory.CategoryType = models.ServiceTypeHotel

	store := new(MockStore)
	store.On("GetDiscountByID", mock.Anything, "d-prov").Return(byProvince, nil)
	store.On("GetDiscountByID", mock.Anything, "d-cat").Return(byCategory, nil)

	scope := OrderScope{ProvinceCodes: []string{"48"}, Categories: []models.ServiceType{models.ServiceTypeHotel}}
	res, err := newService(store).ApplyDiscounts(context.Background(), dec("100"), []string{"d-prov", "d-cat"}, scope)
	require.NoError(t, err)
	assert.True(t, res.Total.Equal(dec("10")))
}

func TestResolveSatisfiedDiscountsUnion(t *testing.T) {
	store := new(MockStore)
	global := *fixed("d-all", "5")
	svc := *fixed("d-svc", "5")
	prov := *fixed("d-prov", "5")
	store.On("ListDiscountsByApplyType", mock.Anything, models.ApplyAll).Return([]models.Discount{global}, nil)
	store.On("ListDiscountsByServiceID", mock.Anything, "svc-1").Return([]models.Discount{svc}, nil)
	store.On("ListDiscountsByProvinceCode", mock.Anything, "48").Return([]models.Discount{prov, svc}, nil)

	got, err := newService(store).ResolveSatisfiedDiscounts(context.Background(), SatisfiedQuery{ServiceID: "svc-1", ProvinceCode: "48"})
	require.NoError(t, err)

	ids := []string{}
	for _, d := range got {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"d-all", "d-svc", "d-prov"}, ids)
	store.AssertNotCalled(t, "ListDiscountsByCategory", mock.Anything, mock.Anything)
}

func TestResolveSatisfiedDiscountsEmptyIsNotError(t *testing.T) {
	store := new(MockStore)
	store.On("ListDiscountsByApplyType", mock.Anything, models.ApplyAll).Return([]models.Discount{}, nil)

	got, err := newService(store).ResolveSatisfiedDiscounts(context.Background(), SatisfiedQuery{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCreateDiscountValidation(t *testing.T) {
	base := models.DiscountRequest{
		Name:         "Summer",
		Code:         "SUMMER",
		StartDate:    now,
		EndDate:      now.Add(48 * time.Hour),
		Quantity:     5,
		DiscountType: models.DiscountTypePercentage,
		ApplyType:    models.ApplyService,
		ServiceList:  []string{"svc-1", "svc-1"},
	}
	pct, maxAmount := dec("10"), dec("20")

	t.Run("percentage without values", func(t *testing.T) {
		_, err := newService(new(MockStore)).CreateDiscount(context.Background(), base)
		assert.Equal(t, apperror.Validation, apperror.CategoryOf(err))
	})

	t.Run("unknown service", func(t *testing.T) {
		req := base
		req.Percentage, req.MaxDiscountAmount = &pct, &maxAmount
		req.ServiceList = []string{"svc-missing"}
		_, err := newService(new(MockStore)).CreateDiscount(context.Background(), req)
		assert.True(t, errors.Is(err, apperror.ErrCatalogItemNotFound))
	})

	t.Run("valid", func(t *testing.T) {
		req := base
		req.Percentage, req.MaxDiscountAmount = &pct, &maxAmount
		store := new(MockStore)
		store.On("FindDiscountByCode", mock.Anything, "SUMMER").Return(nil, nil)
		store.On("CreateDiscount", mock.Anything, mock.MatchedBy(func(d *models.Discount) bool {
			return d.ApplyType == models.ApplyService && len(d.ServiceIDs) == 1 && len(d.ProvinceCodes) == 0 && d.Percentage.Valid && !d.FixedPrice.Valid
		})).Return(nil)

		d, err := newService(store).CreateDiscount(context.Background(), req)
		require.NoError(t, err)
		assert.NotEmpty(t, d.ID)
		store.AssertExpectations(t)
	})

	t.Run("duplicate code", func(t *testing.T) {
		req := base
		req.Percentage, req.MaxDiscountAmount = &pct, &maxAmount
		store := new(MockStore)
		store.On("FindDiscountByCode", mock.Anything, "SUMMER").Return(&models.Discount{ID: "other"}, nil)

		_, err := newService(store).CreateDiscount(context.Background(), req)
		assert.Equal(t, apperror.Validation, apperror.CategoryOf(err))
		store.AssertNotCalled(t, "CreateDiscount", mock.Anything, mock.Anything)
	})
}

func TestDeleteRedeemedDiscountIsRejected(t *testing.T) {
	store := new(MockStore)
	store.On("IsRedeemed", mock.Anything, "d-1").Return(true, nil)

	err := newService(store).DeleteDiscount(context.Background(), "d-1")
	assert.Equal(t, apperror.StateConflict, apperror.CategoryOf(err))
	store.AssertNotCalled(t, "DeleteDiscount", mock.Anything, mock.Anything)
}
