package dashboard

import "context"

// DashboardService defines the interface for dashboard operations
type DashboardService interface {
	// GetDashboard returns combined dashboard data using parallel queries
	GetDashboard(ctx context.Context, filter DashboardFilter) (DashboardResponse, error)
}
