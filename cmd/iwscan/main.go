// Package main provides the entry point for the iwscan CLI.
//
// iwscan runs the wireless scanning utility for one or more interfaces,
// parses its cell-oriented report into access point records and renders
// them as text, JSON or Markdown. Every scan is kept in a local history so
// that consecutive scans can be compared.
//
// Usage:
//
//	iwscan scan [interface...]
//	iwscan parse [file]
//	iwscan history [interface]
//
// See --help for all available options.
package main

// main is the entry point for iwscan.
func main() {
	Execute()
}
