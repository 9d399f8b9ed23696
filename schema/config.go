package schema

import "strings"

type config struct {
	openAPIVersion string
	title          string
	version        string
	description    string
	rootName       string
}

func defaultConfig() config {
	return config{
		openAPIVersion: "3.0.3",
		title:          "Staged Document",
		version:        "1.0.0",
	}
}

// Option configures Generate.
type Option func(*config)

// WithOpenAPIVersion overrides the OpenAPI version string (default: 3.0.3).
func WithOpenAPIVersion(version string) Option {
	return func(cfg *config) {
		if version = strings.TrimSpace(version); version != "" {
			cfg.openAPIVersion = version
		}
	}
}

// WithInfo sets the document title and version. Blank values keep the
// defaults.
func WithInfo(title, version string) Option {
	return func(cfg *config) {
		if title = strings.TrimSpace(title); title != "" {
			cfg.title = title
		}
		if version = strings.TrimSpace(version); version != "" {
			cfg.version = version
		}
	}
}

func WithDescription(description string) Option {
	return func(cfg *config) {
		cfg.description = strings.TrimSpace(description)
	}
}

// WithRootName names the root component. It defaults to the Go type name.
func WithRootName(name string) Option {
	return func(cfg *config) {
		cfg.rootName = strings.TrimSpace(name)
	}
}
