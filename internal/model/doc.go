// Package model defines the core data structures used throughout iwscan.
//
// This package contains the following main types:
//   - AccessPoint: One wireless cell reported by the scanning utility
//   - ScanReport: The result of scanning one interface, with metadata
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
