package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	DocURL     string
}

const docBase = "https://vroute.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Pattern syntax (R100-R199)

	"R101": {
		Category:   CategoryPattern,
		Message:    "Invalid pattern segment",
		Detail:     "A segment uses brackets that do not form [name], [[name]], [...name] or [[...name]], or the name is not an identifier.",
		Suggestion: "Parameter names start with a letter or underscore and contain letters, digits, '_' or '-'.",
		DocURL:     docBase + "R101",
	},
	"R102": {
		Category:   CategoryPattern,
		Message:    "Catch-all is not the last segment",
		Detail:     "A catch-all parameter consumes the rest of the path, so nothing may follow it.",
		Suggestion: "Move [...name] to the end of the pattern.",
		DocURL:     docBase + "R102",
	},
	"R103": {
		Category: CategoryPattern,
		Message:  "Duplicate parameter name",
		Detail:   "Each parameter name may appear only once per pattern.",
		DocURL:   docBase + "R103",
	},
	"R104": {
		Category: CategoryPattern,
		Message:  "Missing parameter value",
		Detail:   "A required parameter was not supplied when building a path from a pattern.",
		DocURL:   docBase + "R104",
	},

	// Route table (R200-R299)

	"R201": {
		Category:   CategoryRoute,
		Message:    "Duplicate route",
		Detail:     "Two routes normalize to the same pattern and would shadow each other.",
		Suggestion: "Remove one of the routes or merge their handlers into one bundle.",
		DocURL:     docBase + "R201",
	},
	"R202": {
		Category:   CategoryRoute,
		Message:    "Ambiguous optional catch-all routes",
		Detail:     "Two optional catch-all routes have the same precedence and can match the same paths.",
		Suggestion: "Give one of them a distinguishing literal prefix.",
		DocURL:     docBase + "R202",
	},
	"R203": {
		Category: CategoryRoute,
		Message:  "Route has no handlers",
		Detail:   "A route must declare at least one HTTP method handler or a WebSocket handler.",
		DocURL:   docBase + "R203",
	},
	"R204": {
		Category:   CategoryRoute,
		Message:    "Route file name is not a valid pattern",
		Suggestion: "Use [id].go for parameters, [...slug].go for catch-alls and (group) directories for layout-only folders.",
		DocURL:     docBase + "R204",
	},
	"R205": {
		Category: CategoryRoute,
		Message:  "No routes found",
		Detail:   "The routes directory contains no route files.",
		DocURL:   docBase + "R205",
	},
	"R206": {
		Category: CategoryRoute,
		Message:  "Path matches no route",
		DocURL:   docBase + "R206",
	},
	"R207": {
		Category: CategoryRoute,
		Message:  "Malformed request path",
		Detail:   "The path contains a backslash, a NUL byte, an invalid percent escape, an encoded slash or escapes the root.",
		DocURL:   docBase + "R207",
	},

	// Configuration (R300-R399)

	"R301": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create vroute.json or pass --config.",
		DocURL:     docBase + "R301",
	},
	"R302": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration file",
		Suggestion: "Check that vroute.json is valid JSON.",
		DocURL:     docBase + "R302",
	},
	"R303": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		DocURL:   docBase + "R303",
	},

	// Manifests (R400-R499)

	"R401": {
		Category: CategoryManifest,
		Message:  "Manifest could not be read",
		DocURL:   docBase + "R401",
	},
	"R402": {
		Category:   CategoryManifest,
		Message:    "Invalid manifest",
		Suggestion: `A manifest looks like {"routes":[{"pattern":"/blog/[id]","handlers":{"GET":"echo"}}]}.`,
		DocURL:     docBase + "R402",
	},
	"R403": {
		Category: CategoryManifest,
		Message:  "Unknown handler",
		Detail:   "The manifest names a handler that is not registered.",
		DocURL:   docBase + "R403",
	},
	"R404": {
		Category: CategoryManifest,
		Message:  "Unknown middleware",
		Detail:   "The manifest names a middleware that is not registered.",
		DocURL:   docBase + "R404",
	},

	// CLI (R500-R599)

	"R501": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
		DocURL:   docBase + "R501",
	},
	"R502": {
		Category: CategoryCLI,
		Message:  "Server failed",
		DocURL:   docBase + "R502",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
