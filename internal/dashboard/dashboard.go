// Package dashboard computes the back-office rollups from stored orders.
package dashboard

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

const (
	DefaultSeriesDays = 30
	MaxSeriesDays     = 366
	recentOrdersLimit = 5
	topProductsLimit  = 5
)

type Source interface {
	OrdersCreatedSince(ctx context.Context, since time.Time) ([]models.Order, error)
	RecentOrders(ctx context.Context, limit int64) ([]models.Order, error)
	CountActiveCustomers(ctx context.Context) (int64, error)
	CountLowStock(ctx context.Context) (int64, error)
	GetProduct(ctx context.Context, id int64) (models.Product, error)
}

type PeriodStats struct {
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

func (p *PeriodStats) add(o models.Order) {
	p.Orders++
	p.Revenue = p.Revenue.Add(o.Total)
}

type TotalStats struct {
	Orders            int64           `json:"orders"`
	Revenue           decimal.Decimal `json:"revenue"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
	Customers         int64           `json:"customers"`
}

type Alerts struct {
	LowStockProducts int64 `json:"lowStockProducts"`
}

type RecentOrder struct {
	ID           int64              `json:"id"`
	OrderNumber  string             `json:"orderNumber"`
	CustomerName string             `json:"customerName"`
	Total        decimal.Decimal    `json:"total"`
	Status       models.OrderStatus `json:"status"`
	CreatedAt    time.Time          `json:"createdAt"`
}

type TopProduct struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type Overview struct {
	Today        PeriodStats   `json:"today"`
	Month        PeriodStats   `json:"month"`
	Year         PeriodStats   `json:"year"`
	Total        TotalStats    `json:"total"`
	Alerts       Alerts        `json:"alerts"`
	RecentOrders []RecentOrder `json:"recentOrders"`
	TopProducts  []TopProduct  `json:"topProducts"`
}

type DayKey struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type DailySales struct {
	ID      DayKey          `json:"_id"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type CategoryRevenue struct {
	Category string          `json:"category"`
	Orders   int64           `json:"orders"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type Service struct {
	src Source
	loc *time.Location
	now func() time.Time
}

// NewService buckets days in loc; a nil loc means UTC.
func NewService(src Source, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{src: src, loc: loc, now: time.Now}
}

func (s *Service) startOfDay(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// Overview counts every order, cancelled ones included, in the period and
// all-time figures.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	orders, err := s.src.OrdersCreatedSince(ctx, time.Time{})
	if err != nil {
		return Overview{}, err
	}
	customers, err := s.src.CountActiveCustomers(ctx)
	if err != nil {
		return Overview{}, err
	}
	lowStock, err := s.src.CountLowStock(ctx)
	if err != nil {
		return Overview{}, err
	}
	recent, err := s.src.RecentOrders(ctx, recentOrdersLimit)
	if err != nil {
		return Overview{}, err
	}

	today := s.startOfDay(s.now())
	month := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.loc)
	year := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, s.loc)

	out := Overview{
		Today:        PeriodStats{Revenue: decimal.Zero},
		Month:        PeriodStats{Revenue: decimal.Zero},
		Year:         PeriodStats{Revenue: decimal.Zero},
		Total:        TotalStats{Revenue: decimal.Zero, AverageOrderValue: decimal.Zero, Customers: customers},
		Alerts:       Alerts{LowStockProducts: lowStock},
		RecentOrders: make([]RecentOrder, 0, len(recent)),
	}
	for _, o := range orders {
		created := o.CreatedAt.In(s.loc)
		if !created.Before(today) {
			out.Today.add(o)
		}
		if !created.Before(month) {
			out.Month.add(o)
		}
		if !created.Before(year) {
			out.Year.add(o)
		}
		out.Total.Orders++
		out.Total.Revenue = out.Total.Revenue.Add(o.Total)
	}
	if out.Total.Orders > 0 {
		out.Total.AverageOrderValue = out.Total.Revenue.Div(decimal.NewFromInt(out.Total.Orders)).Round(2)
	}

	for _, o := range recent {
		out.RecentOrders = append(out.RecentOrders, RecentOrder{
			ID:           o.ID,
			OrderNumber:  o.OrderNumber,
			CustomerName: o.CustomerName,
			Total:        o.Total,
			Status:       o.Status,
			CreatedAt:    o.CreatedAt,
		})
	}
	out.TopProducts = topProducts(orders, topProductsLimit)
	return out, nil
}

func topProducts(orders []models.Order, limit int) []TopProduct {
	byID := map[int64]*TopProduct{}
	for _, o := range orders {
		for _, item := range o.Items {
			tp, ok := byID[item.ProductID]
			if !ok {
				tp = &TopProduct{ProductID: item.ProductID, Revenue: decimal.Zero}
				byID[item.ProductID] = tp
			}
			tp.Name = item.ProductName
			tp.Quantity += item.Quantity
			tp.Revenue = tp.Revenue.Add(item.Total)
		}
	}

	out := make([]TopProduct, 0, len(byID))
	for _, tp := range byID {
		out = append(out, *tp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// clampDays applies the sales-series defaults.
func clampDays(days int) int {
	if days <= 0 {
		return DefaultSeriesDays
	}
	return min(days, MaxSeriesDays)
}

// window returns non-cancelled orders created in [today-days, end of today].
func (s *Service) window(ctx context.Context, days int) ([]models.Order, error) {
	today := s.startOfDay(s.now())
	start := today.AddDate(0, 0, -clampDays(days))
	end := today.AddDate(0, 0, 1)

	orders, err := s.src.OrdersCreatedSince(ctx, start)
	if err != nil {
		return nil, err
	}
	out := orders[:0:0]
	for _, o := range orders {
		if o.Status == models.OrderStatusCancelled {
			continue
		}
		if o.CreatedAt.Before(start) || !o.CreatedAt.Before(end) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// SalesSeries returns one ascending bucket per day in [today-days, today]
// that has at least one non-cancelled order. days <= 0 means 30; the window
// is capped at a year.
func (s *Service) SalesSeries(ctx context.Context, days int) ([]DailySales, error) {
	orders, err := s.window(ctx, days)
	if err != nil {
		return nil, err
	}

	buckets := map[DayKey]*DailySales{}
	for _, o := range orders {
		created := o.CreatedAt.In(s.loc)
		key := DayKey{Year: created.Year(), Month: int(created.Month()), Day: created.Day()}
		b, ok := buckets[key]
		if !ok {
			b = &DailySales{ID: key, Revenue: decimal.Zero}
			buckets[key] = b
		}
		b.Orders++
		b.Revenue = b.Revenue.Add(o.Total)
	}

	out := make([]DailySales, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.before(out[j].ID)
	})
	return out, nil
}

func (k DayKey) before(other DayKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	if k.Month != other.Month {
		return k.Month < other.Month
	}
	return k.Day < other.Day
}

// RevenueByCategory sums line revenue of non-cancelled orders in the same
// window as SalesSeries, grouped by the current category of each product.
// Lines whose product no longer exists count as "uncategorized".
func (s *Service) RevenueByCategory(ctx context.Context, days int) ([]CategoryRevenue, error) {
	orders, err := s.window(ctx, days)
	if err != nil {
		return nil, err
	}

	categoryOf := map[int64]string{}
	lookup := func(id int64) (string, error) {
		if c, ok := categoryOf[id]; ok {
			return c, nil
		}
		category := "uncategorized"
		p, err := s.src.GetProduct(ctx, id)
		switch {
		case err == nil && p.Category != "":
			category = p.Category
		case err != nil && !apperr.IsNotFound(err):
			return "", err
		}
		categoryOf[id] = category
		return category, nil
	}

	totals := map[string]*CategoryRevenue{}
	for _, o := range orders {
		seen := map[string]bool{}
		for _, item := range o.Items {
			category, err := lookup(item.ProductID)
			if err != nil {
				return nil, err
			}
			cr, ok := totals[category]
			if !ok {
				cr = &CategoryRevenue{Category: category, Revenue: decimal.Zero}
				totals[category] = cr
			}
			if !seen[category] {
				cr.Orders++
				seen[category] = true
			}
			cr.Quantity += item.Quantity
			cr.Revenue = cr.Revenue.Add(item.Total)
		}
	}

	out := make([]CategoryRevenue, 0, len(totals))
	for _, cr := range totals {
		out = append(out, *cr)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}
