package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"

	"github.com/shopspring/decimal"
)

type Store interface {
	CountByStatus(ctx context.Context, from, to time.Time) ([]StatusCount, error)
	Sales(ctx context.Context, from, to time.Time) (int, decimal.Decimal, error)
	RevenueByService(ctx context.Context, from, to time.Time) ([]ServiceRevenue, error)
	GetDiscountUsage(ctx context.Context, from, to time.Time) ([]DiscountUsage, error)
}

// Service handles analytics operations
type Service struct {
	db  Store
	now func() time.Time
}

func NewService(db Store) *Service {
	return &Service{db: db, now: time.Now}
}

// DayStats counts the orders created today per status.
type DayStats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// MonthStats covers paid orders of the current month.
type MonthStats struct {
	Total   int             `json:"total"`
	Revenue decimal.Decimal `json:"revenue"`
}

type OrderStats struct {
	Today     DayStats   `json:"today"`
	ThisMonth MonthStats `json:"thisMonth"`
}

// Period is a half-open [From, To) window.
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) validate() error {
	if p.From.IsZero() || p.To.IsZero() {
		return apperror.NewValidation("from and to are required")
	}
	if !p.To.After(p.From) {
		return apperror.NewValidation("to must be after from")
	}
	return nil
}

// GetOrderStats returns the dashboard counters, with days and months in UTC.
func (s *Service) GetOrderStats(ctx context.Context) (*OrderStats, error) {
	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	counts, err := s.db.CountByStatus(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("count today's orders: %w", err)
	}

	stats := &OrderStats{}
	for _, c := range counts {
		stats.Today.Total += c.Count
		switch c.Status {
		case models.OrderStatusPending:
			stats.Today.Pending = c.Count
		case models.OrderStatusSuccess:
			stats.Today.Success = c.Count
		case models.OrderStatusFailed:
			stats.Today.Failed = c.Count
		}
	}

	total, revenue, err := s.db.Sales(ctx, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("sum monthly sales: %w", err)
	}
	stats.ThisMonth = MonthStats{Total: total, Revenue: revenue}
	return stats, nil
}

// GetRevenueByService ranks services by paid revenue, highest first.
func (s *Service) GetRevenueByService(ctx context.Context, p Period) ([]ServiceRevenue, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.db.RevenueByService(ctx, p.From, p.To)
}

func (s *Service) GetDiscountUsage(ctx context.Context, p Period) ([]DiscountUsage, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	usage, err := s.db.GetDiscountUsage(ctx, p.From, p.To)
	if err != nil {
		return nil, err
	}
	if usage == nil {
		usage = []DiscountUsage{}
	}
	return usage, nil
}

func mergeRevenue(parts ...[]ServiceRevenue) []ServiceRevenue {
	byService := map[string]decimal.Decimal{}
	for _, part := range parts {
		for _, r := range part {
			byService[r.ServiceID] = byService[r.ServiceID].Add(r.Revenue)
		}
	}

	merged := make([]ServiceRevenue, 0, len(byService))
	for id, revenue := range byService {
		merged = append(merged, ServiceRevenue{ServiceID: id, Revenue: revenue})
	}
	sort.Slice(merged, func(i, j int) bool {
		if c := merged[i].Revenue.Cmp(merged[j].Revenue); c != 0 {
			return c > 0
		}
		return merged[i].ServiceID < merged[j].ServiceID
	})
	return merged
}
