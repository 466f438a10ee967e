package api

import "strings"

// Base URLs for the two build configurations.
const (
	DevelopmentBaseURL = "http://localhost:8000"
	ProductionBaseURL  = "https://sawa-platform.vercel.app"
)

// buildMode is set at build time via
// -ldflags "-X github.com/sawa-platform/sawa/pkg/api.buildMode=development"
var buildMode = "production"

// Endpoint paths, relative to /api/.
const (
	PathLogin           = "auth/login/"
	PathRegister        = "auth/register/"
	PathTokenRefresh    = "auth/token/refresh/"
	PathProfile         = "auth/profile/"
	PathChangePassword  = "auth/change-password/"
	PathDashboard       = "dashboard/"
	PathServiceRequest  = "service-requests/"
	PathApplications    = "applications/"
	PathReviews         = "reviews/"
	PathNotifications   = "notifications/"
	PathConversations   = "chat/conversations/"
	PathThreads         = "chat/threads/"
	PathBuyerProfile    = "buyers/profile/"
	PathProviderProfile = "providers/profile/"
)

// IsDevelopment reports whether the binary was built in development mode.
func IsDevelopment() bool {
	return buildMode == "development"
}

// ResolveBaseURL returns the backend base URL for the current build mode.
func ResolveBaseURL() string {
	if IsDevelopment() {
		return DevelopmentBaseURL
	}
	return ProductionBaseURL
}

// BuildURL returns the fully-qualified URL for an API endpoint.
// A single leading slash on endpoint is ignored, so "x/" and "/x/" are equivalent.
func BuildURL(endpoint string) string {
	return Default().URL(endpoint)
}

// Endpoints builds API URLs against a fixed base.
type Endpoints struct {
	Base string
}

// Default returns Endpoints bound to the build-mode base URL.
func Default() Endpoints {
	return Endpoints{Base: ResolveBaseURL()}
}

// URL joins the base, the /api/ prefix and endpoint.
func (e Endpoints) URL(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	return e.Base + "/api/" + endpoint
}
