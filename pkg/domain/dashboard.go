package domain

// DashboardCounts are the per-role counters shown on the dashboard.
type DashboardCounts struct {
	Requests     int `json:"requests"`
	Applications int `json:"applications"`
	Messages     int `json:"messages"`
	Reviews      int `json:"reviews"`
}

// Dashboard is the dashboard endpoint response.
type Dashboard struct {
	Stats          DashboardCounts  `json:"stats"`
	RecentActivity []map[string]any `json:"recent_activity"`
}
