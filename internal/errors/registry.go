package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

var registry = map[string]ErrorTemplate{
	// Configuration (L001-L019)
	"L001": {
		Category: CategoryConfig,
		Message:  "Config file not readable",
		Detail:   "The configuration file could not be opened. Pass --config with a valid path or remove the flag to use defaults.",
	},
	"L002": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "The configuration file is not valid JSON or a field has the wrong type.",
	},
	"L003": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A configuration value is out of range.",
	},
	"L004": {
		Category: CategoryConfig,
		Message:  "Invalid environment override",
		Detail:   "A LAZYIMG_* environment variable could not be parsed.",
	},
	"L005": {
		Category: CategoryConfig,
		Message:  "Env file not readable",
		Detail:   "The .env file exists but could not be loaded.",
	},

	// Probing (L020-L039)
	"L020": {
		Category: CategoryProbe,
		Message:  "Invalid probe base URL",
		Detail:   "probe.baseURL must be an absolute http or https URL.",
	},
	"L021": {
		Category: CategoryProbe,
		Message:  "S3 client setup failed",
		Detail:   "The S3 client could not be created from the s3 section of the configuration.",
	},
	"L022": {
		Category: CategoryProbe,
		Message:  "Relative locator without base URL",
		Detail:   "A relative image locator needs probe.baseURL (or --base) to be probed over HTTP.",
	},

	// Rewriting (L040-L059)
	"L040": {
		Category: CategoryRewrite,
		Message:  "Input not readable",
		Detail:   "The HTML input file could not be opened.",
	},
	"L041": {
		Category: CategoryRewrite,
		Message:  "Rewrite failed",
		Detail:   "The HTML document could not be parsed or rendered.",
	},
	"L042": {
		Category: CategoryRewrite,
		Message:  "Output not writable",
		Detail:   "The annotated document could not be written.",
	},

	// Serving (L060-L079)
	"L060": {
		Category: CategoryServe,
		Message:  "Docs root not found",
		Detail:   "serve.root must point at a built documentation directory.",
	},
	"L061": {
		Category: CategoryServe,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
	},

	// Command line (L080-L099)
	"L080": {
		Category: CategoryCLI,
		Message:  "Invalid log level",
		Detail:   "Log level must be one of debug, info, warn or error.",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
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
