// Package scan turns a wireless interface name into a complete scan report.
//
// A Scanner obtains raw scan text from an Acquirer, refuses to parse it when
// acquisition failed, parses it with the iwlist parser and fills in the
// report metadata. ScanText does the same for text that was acquired
// elsewhere, such as a saved iwlist output file.
//
// BatchScanner scans several interfaces concurrently with a bounded number
// of goroutines, using errgroup the same way for every batch.
package scan
