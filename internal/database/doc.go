// Package database provides SQLite-based storage for iwscan.
//
// This package implements the ScanDB, which stores:
//   - Complete scan reports as JSON, one row per scan
//   - One row per access point seen in each scan, indexed by hardware address
//
// The driver is modernc.org/sqlite, which needs no cgo.
package database
