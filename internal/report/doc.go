// Package report renders scan reports for people and for other tools.
//
// This package contains writers for different output formats:
//   - SimpleWriter: aligned text table for terminal display
//   - JSONWriter and FullJSONWriter: structured JSON for tool integration
//   - MarkdownWriter: GitHub Flavored Markdown with tables, alerts and a
//     channel distribution pie chart
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed with MultiWriter.
package report
