// Package settings manages the headless settings screen: where anonymous
// visitors to the admin area are sent, and which URL fragments stay
// reachable while the lockdown is on. Values live in the options store and
// are mirrored to a YAML file that the lockdown filter consults first.
package settings

// DefaultAllowedURLs is the allow-list used when nothing is configured.
var DefaultAllowedURLs = []string{
	"/wp-admin/admin-ajax.php",
	"/wp-json/",
	"/console/",
	"/graphql",
}

// Settings is the editable state of the screen.
type Settings struct {
	// SiteRedirect is an absolute http(s) URL without a trailing slash, or
	// empty for the site root.
	SiteRedirect string `json:"site_redirect"`

	// AllowedURLs holds substrings matched against request URIs.
	AllowedURLs []string `json:"allowed_urls"`
}

// FileConfig is the on-disk shape of the generated settings file.
type FileConfig struct {
	PageName        string   `yaml:"pageName"`
	PageDescription string   `yaml:"pageDescription"`
	SiteRedirect    string   `yaml:"site_redirect"`
	AllowedURLs     []string `yaml:"allowed_urls"`
}

// Page metadata written to the settings file.
const (
	pageName        = "Headless Settings"
	pageDescription = "Configure headless CMS settings"
)

// Nonce action for the settings form.
const nonceAction = "headless_settings"

func defaultAllowedURLs() []string {
	return append([]string(nil), DefaultAllowedURLs...)
}
