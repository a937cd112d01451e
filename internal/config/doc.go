// Package config provides configuration loading and validation for the
// audio capture tool. It handles YAML-based configuration with per-section
// validation, plus .env and environment overrides for deployment secrets.
package config
