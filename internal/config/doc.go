// Package config loads, parses and validates TaskFlow settings from an
// optional config.yaml and TASKFLOW_-prefixed environment variables.
package config
