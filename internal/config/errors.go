package config

import "errors"

// Sentinel kinds for configuration errors.
var (
	// ErrInvalidConfig marks a configuration that fails validation after
	// all layers are merged.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrLoadConfig wraps failures reading or parsing a layer.
	ErrLoadConfig = errors.New("load config failed")
)
