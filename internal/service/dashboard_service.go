package service

import (
	"context"
	"encoding/json"
	"time"

	"tienda-service/internal/models"
	"tienda-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	labelLayout = "02 Jan"
	dayKey      = "2006-01-02"
)

// ReportStore is the read side used by DashboardService
type ReportStore interface {
	DailyRevenue(ctx context.Context, since time.Time, timezone string) ([]models.DailyRevenue, error)
	ProductSalesSince(ctx context.Context, since time.Time) ([]models.ProductSales, error)
	CountSalesSince(ctx context.Context, since time.Time) (int, error)
	CountCustomers(ctx context.Context) (int, error)
}

// DashboardCache stores the rendered dashboard between builds
type DashboardCache interface {
	GetDashboard(ctx context.Context) ([]byte, error)
	SetDashboard(ctx context.Context, payload []byte, ttl time.Duration) error
}

// Dashboard is the revenue chart plus headline numbers
type Dashboard struct {
	Labels []string          `json:"labels"`
	Sales  []decimal.Decimal `json:"sales"`
	KPI    KPI               `json:"kpi"`
}

// KPI are the headline numbers of the window
type KPI struct {
	Revenue   decimal.Decimal `json:"revenue"`
	Orders    int             `json:"orders"`
	Customers int             `json:"customers"`
	TopSell   TopSeller       `json:"top_sell"`
}

// TopSeller is the product with the most units sold in the window
type TopSeller struct {
	Name     string          `json:"name"`
	Quantity int             `json:"qty"`
	Revenue  decimal.Decimal `json:"revenue"`
	Price    decimal.Decimal `json:"price"`
}

// NoTopSeller stands in when the window has no sales
var NoTopSeller = TopSeller{Name: "—", Revenue: decimal.Zero, Price: decimal.Zero}

// DashboardConfig configures the window and caching
type DashboardConfig struct {
	WindowDays int
	Location   *time.Location
	CacheTTL   time.Duration
}

// DashboardService aggregates sales into the dashboard
type DashboardService struct {
	store  ReportStore
	cache  DashboardCache
	cfg    DashboardConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewDashboardService creates a new dashboard service. cache may be nil.
func NewDashboardService(store ReportStore, cache DashboardCache, cfg DashboardConfig) *DashboardService {
	if cfg.WindowDays < 1 {
		cfg.WindowDays = 30
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &DashboardService{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

// Build returns the dashboard for the trailing window. It never fails:
// any storage error leaves the affected figures at zero.
func (s *DashboardService) Build(ctx context.Context) *Dashboard {
	ctx, span := util.StartSpan(ctx, "DashboardService.Build")
	defer span.End()

	if s.cache != nil {
		if payload, err := s.cache.GetDashboard(ctx); err == nil {
			var cached Dashboard
			if err := json.Unmarshal(payload, &cached); err == nil {
				return &cached
			}
		}
	}

	now := s.now().In(s.cfg.Location)
	since := now.AddDate(0, 0, -s.cfg.WindowDays)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location)

	dash := &Dashboard{
		Labels: make([]string, s.cfg.WindowDays),
		Sales:  make([]decimal.Decimal, s.cfg.WindowDays),
		KPI:    KPI{Revenue: decimal.Zero, TopSell: NoTopSeller},
	}
	index := make(map[string]int, s.cfg.WindowDays)
	for i := 0; i < s.cfg.WindowDays; i++ {
		day := today.AddDate(0, 0, i-s.cfg.WindowDays+1)
		dash.Labels[i] = day.Format(labelLayout)
		dash.Sales[i] = decimal.Zero
		index[day.Format(dayKey)] = i
	}

	degraded := false
	fail := func(what string, err error) {
		degraded = true
		util.FailSpan(span, err)
		s.logger.Warn("Dashboard aggregation failed", zap.String("part", what), zap.Error(err))
	}

	if days, err := s.store.DailyRevenue(ctx, since, s.cfg.Location.String()); err != nil {
		fail("daily_revenue", err)
	} else {
		for _, d := range days {
			if i, ok := index[d.Day.Format(dayKey)]; ok {
				dash.Sales[i] = d.Revenue.Round(2)
			}
		}
	}

	revenue := decimal.Zero
	for _, v := range dash.Sales {
		revenue = revenue.Add(v)
	}
	dash.KPI.Revenue = revenue.Round(2)

	if products, err := s.store.ProductSalesSince(ctx, since); err != nil {
		fail("product_sales", err)
	} else if best := bestSeller(products); best != nil {
		dash.KPI.TopSell = TopSeller{
			Name:     best.Name,
			Quantity: best.Quantity,
			Revenue:  best.Revenue.Round(2),
			Price:    best.Price,
		}
	}

	if orders, err := s.store.CountSalesSince(ctx, since); err != nil {
		fail("orders", err)
	} else {
		dash.KPI.Orders = orders
	}

	if customers, err := s.store.CountCustomers(ctx); err != nil {
		fail("customers", err)
	} else {
		dash.KPI.Customers = customers
	}

	if degraded {
		util.DashboardDegradedTotal.Inc()
		return dash
	}

	if s.cache != nil {
		if payload, err := json.Marshal(dash); err == nil {
			if err := s.cache.SetDashboard(ctx, payload, s.cfg.CacheTTL); err != nil {
				s.logger.Warn("Failed to cache dashboard", zap.Error(err))
			}
		}
	}

	return dash
}

// bestSeller picks the product with the most units, first one on ties
func bestSeller(products []models.ProductSales) *models.ProductSales {
	var best *models.ProductSales
	for i := range products {
		if best == nil || products[i].Quantity > best.Quantity {
			best = &products[i]
		}
	}
	return best
}
