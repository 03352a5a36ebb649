package config

import "errors"

// Validation errors returned by Validate. Callers match them with errors.Is.
var (
	// ErrNoStartURL is returned when neither --url nor the config file names a seed.
	ErrNoStartURL = errors.New("no start URL: use --url or set start_url in the config file")

	// ErrInvalidStartURL is returned when the seed lacks a scheme or host.
	ErrInvalidStartURL = errors.New("invalid start URL: need an http or https URL with a host")

	ErrInvalidDepth   = errors.New("invalid max depth: must be non-negative")
	ErrInvalidPages   = errors.New("invalid max pages: must be positive")
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when a politeness delay is negative. Use 0
	// for no delay between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrProxyWithFingerprint is returned when --proxy and --tls-fingerprint are
	// combined. Tunneled connections would silently lose the fingerprint.
	ErrProxyWithFingerprint = errors.New("--proxy cannot be combined with --tls-fingerprint")
)
