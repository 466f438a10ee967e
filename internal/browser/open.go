package browser

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/sawa-platform/sawa/pkg/api"
)

// DevelopmentWebURL is where the web app is served in development builds.
const DevelopmentWebURL = "http://localhost:3000"

// Pages maps page names accepted by `sawa open` to web app routes. Onboarding
// and request attachments, which need file uploads, are only on the web.
var Pages = map[string]string{
	"dashboard":           "/dashboard",
	"onboarding-buyer":    "/onboarding/buyer",
	"onboarding-provider": "/onboarding/provider",
	"requests":            "/requests",
	"new-request":         "/requests/new",
	"applications":        "/applications",
	"messages":            "/messages",
	"reviews":             "/reviews",
	"settings":            "/settings",
	"login":               "/login",
	"register":            "/register",
}

// PageNames returns the known page names, sorted.
func PageNames() []string {
	names := make([]string, 0, len(Pages))
	for n := range Pages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WebBaseURL returns the web app origin for the current build mode.
func WebBaseURL() string {
	if api.IsDevelopment() {
		return DevelopmentWebURL
	}
	return api.ProductionBaseURL
}

// PageURL returns the web URL of a named page.
func PageURL(base, page string) (string, error) {
	route, ok := Pages[page]
	if !ok {
		return "", fmt.Errorf("unknown page %q (known: %s)", page, strings.Join(PageNames(), ", "))
	}
	return strings.TrimSuffix(base, "/") + route, nil
}

// start is swapped in tests.
var start = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Open opens the specified URL in the user's default browser.
func Open(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return start("open", url)
	case "linux":
		return start("xdg-open", url)
	case "windows":
		return start("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
}

// OpenPage opens a named web page.
func OpenPage(page string) (string, error) {
	url, err := PageURL(WebBaseURL(), page)
	if err != nil {
		return "", err
	}
	return url, Open(url)
}
