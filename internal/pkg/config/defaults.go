package config

import "time"

// Default values for configuration.
const (
	// Server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 90 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultSessionTTL      = 2 * time.Hour
	DefaultCleanupInterval = 10 * time.Minute

	// Backend defaults
	DefaultBackendURL     = "http://localhost:5000"
	DefaultBackendTimeout = 60 * time.Second
	DefaultSessionCookie  = "session"

	// Editor defaults
	DefaultEditorLanguage = "python"

	// Render defaults
	DefaultHighlightStyle        = "github"
	DefaultRenderCacheTTL        = 30 * time.Minute
	DefaultRenderCacheMaxEntries = 1000
	DefaultMathJaxURL            = "https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-chtml.js"

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
