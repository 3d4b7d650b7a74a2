// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/commerce-backend/internal/config"
	"github.com/your-org/commerce-backend/internal/domain/catalog"
	"github.com/your-org/commerce-backend/internal/domain/payment"
	"github.com/your-org/commerce-backend/internal/domain/purchases"
	"github.com/your-org/commerce-backend/internal/domain/sales"
	"gorm.io/gorm"
)

const (
	dashboardCacheKey = "analytics:dashboard"
	dashboardCacheTTL = 60 * time.Second
)

// Service handles dashboard analytics
type Service struct {
	db          *gorm.DB
	config      *config.Config
	redisClient *redis.Client
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, cfg *config.Config, redisClient *redis.Client) *Service {
	return &Service{
		db:          db,
		config:      cfg,
		redisClient: redisClient,
	}
}

// DashboardStats represents overall dashboard statistics
type DashboardStats struct {
	// Sales metrics
	TotalRevenue int64 `json:"total_revenue"` // In cents
	RevenueToday int64 `json:"revenue_today"`
	TotalSales   int64 `json:"total_sales"`
	SalesToday   int64 `json:"sales_today"`
	PendingSales int64 `json:"pending_sales"` // Unsettled payment

	// Purchase metrics
	TotalPurchases   int64 `json:"total_purchases"`
	OrderedPurchases int64 `json:"ordered_purchases"`

	// Stock metrics
	TotalProducts      int64 `json:"total_products"`
	TotalVariants      int64 `json:"total_variants"`
	OutOfStockVariants int64 `json:"out_of_stock_variants"`
	LowStockVariants   int64 `json:"low_stock_variants"`
}

// GetDashboardStats returns dashboard statistics, served from a short redis
// cache when available
func (s *Service) GetDashboardStats() (*DashboardStats, error) {
	if cached := s.readCache(); cached != nil {
		return cached, nil
	}

	stats := &DashboardStats{}
	today := time.Now().UTC().Truncate(24 * time.Hour)

	if err := s.db.Model(&sales.Sale{}).Select("COALESCE(SUM(total_amount), 0)").Scan(&stats.TotalRevenue).Error; err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	if err := s.db.Model(&sales.Sale{}).Where("created_at >= ?", today).
		Select("COALESCE(SUM(total_amount), 0)").Scan(&stats.RevenueToday).Error; err != nil {
		return nil, fmt.Errorf("failed to sum today's revenue: %w", err)
	}
	if err := s.db.Model(&sales.Sale{}).Count(&stats.TotalSales).Error; err != nil {
		return nil, fmt.Errorf("failed to count sales: %w", err)
	}
	if err := s.db.Model(&sales.Sale{}).Where("created_at >= ?", today).Count(&stats.SalesToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count today's sales: %w", err)
	}
	if err := s.db.Model(&sales.Sale{}).Where("payment_status != ?", payment.StatusPaid).Count(&stats.PendingSales).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending sales: %w", err)
	}

	if err := s.db.Model(&purchases.Purchase{}).Count(&stats.TotalPurchases).Error; err != nil {
		return nil, fmt.Errorf("failed to count purchases: %w", err)
	}
	if err := s.db.Model(&purchases.Purchase{}).Where("status = ?", purchases.StatusOrdered).Count(&stats.OrderedPurchases).Error; err != nil {
		return nil, fmt.Errorf("failed to count ordered purchases: %w", err)
	}

	if err := s.db.Model(&catalog.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if err := s.db.Model(&catalog.Variant{}).Count(&stats.TotalVariants).Error; err != nil {
		return nil, fmt.Errorf("failed to count variants: %w", err)
	}
	if err := s.db.Model(&catalog.Variant{}).Where("quantity <= 0").Count(&stats.OutOfStockVariants).Error; err != nil {
		return nil, fmt.Errorf("failed to count out-of-stock variants: %w", err)
	}
	if err := s.db.Model(&catalog.Variant{}).Where("quantity > 0 AND quantity <= min_quantity").Count(&stats.LowStockVariants).Error; err != nil {
		return nil, fmt.Errorf("failed to count low-stock variants: %w", err)
	}

	s.writeCache(stats)
	return stats, nil
}

// InvalidateDashboard drops the cached stats. Called best-effort after
// mutations; a failure is logged and never affects the primary operation.
func (s *Service) InvalidateDashboard() {
	if s.redisClient == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.redisClient.Del(ctx, dashboardCacheKey).Err(); err != nil {
		log.Printf("Warning: failed to invalidate dashboard cache: %v", err)
	}
}

func (s *Service) readCache() *DashboardStats {
	if s.redisClient == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	raw, err := s.redisClient.Get(ctx, dashboardCacheKey).Result()
	if err != nil {
		return nil
	}

	var stats DashboardStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *Service) writeCache(stats *DashboardStats) {
	if s.redisClient == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, dashboardCacheKey, raw, dashboardCacheTTL).Err(); err != nil {
		log.Printf("Warning: failed to cache dashboard stats: %v", err)
	}
}
