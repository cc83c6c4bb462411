// Package config provides configuration structures and utilities for iwscan.
// It defines the options for acquiring scans, parsing them, storing history
// and generating reports, together with the per-interface overrides read
// from the .iwscan YAML file.
package config
