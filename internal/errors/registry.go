package errors

import "sort"

// Template defines a registered error code.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

var registry = map[string]Template{
	// Configuration (P001-P019)

	"P001": {
		Category:   CategoryConfig,
		Message:    "Cannot read configuration file",
		Detail:     "The configuration file exists but could not be read.",
		Suggestion: "Check the file permissions or pass --config with another path.",
	},
	"P002": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration file",
		Detail:     "The configuration file is not valid JSON.",
		Suggestion: "Validate the file with a JSON linter.",
	},
	"P003": {
		Category:   CategoryConfig,
		Message:    "Invalid panel URL",
		Detail:     "The panel URL must be an absolute http or https URL.",
		Suggestion: "Set panelUrl in panelnav.json or PANELNAV_PANEL_URL.",
	},
	"P004": {
		Category:   CategoryConfig,
		Message:    "Missing API key",
		Detail:     "A client API key is required to load servers from the panel.",
		Suggestion: "Set apiKey in panelnav.json or PANELNAV_API_KEY.",
	},
	"P005": {
		Category:   CategoryConfig,
		Message:    "Invalid duration",
		Detail:     "Durations use Go syntax such as \"2s\" or \"15m\" and must not be negative.",
	},
	"P006": {
		Category:   CategoryConfig,
		Message:    "Invalid listen address",
		Detail:     "The listen address must be host:port, e.g. \":8080\".",
		Suggestion: "Set listen in panelnav.json or PANELNAV_LISTEN.",
	},
	"P007": {
		Category: CategoryConfig,
		Message:  "Cannot write configuration file",
	},

	// Routes (P020-P039)

	"P020": {
		Category: CategoryRoute,
		Message:  "Invalid route table",
		Detail:   "A route table failed validation.",
	},
	"P021": {
		Category: CategoryRoute,
		Message:  "Invalid path",
		Detail:   "The path could not be canonicalized.",
	},

	// Panel (P040-P059)

	"P040": {
		Category:   CategoryPanel,
		Message:    "Panel request failed",
		Suggestion: "Check that the panel is reachable and the API key is valid.",
	},

	// CLI (P060-P079)

	"P060": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
	},
	"P061": {
		Category:   CategoryCLI,
		Message:    "Invalid arguments",
		Suggestion: "Run panelnav help for usage.",
	},
}

// Codes returns all registered codes in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for a code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
