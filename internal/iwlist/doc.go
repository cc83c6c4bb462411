// Package iwlist parses the textual report printed by "iwlist <iface> scan"
// into access point records.
//
// The report is line oriented and only loosely delimited. The first line is
// a banner. Each cell starts with a line such as
//
//	Cell 01 - Address: 00:11:22:33:44:55
//
// and is followed by field lines (Channel, Frequency, Quality, Encryption
// key, ESSID, Bit Rates, Mode, Extra, IE, Group Cipher, Pairwise Ciphers,
// Authentication Suites). Field lines are matched by their content, never by
// their position, so reordered or missing lines from other versions of the
// scanning utility are tolerated. Lines the parser does not understand are
// ignored.
//
// # Errors
//
// Two conditions are treated as malformed input: a cell line without an
// address and a Channel line whose value is not an integer. Both are reported
// as a *ParseError carrying the line number and the raw line. By default the
// parser stops at the first error; WithLenient(true) skips the offending cell
// or field and reports every error at the end.
//
// # Usage
//
//	cells, err := iwlist.Parse(output)
//	if err != nil {
//	    var perr *iwlist.ParseError
//	    if errors.As(err, &perr) {
//	        log.Printf("unexpected iwlist output at line %d: %q", perr.Line, perr.Text)
//	    }
//	}
//
// Parsing is a pure function of its input: a Parser holds no state between
// calls and may be shared between goroutines.
package iwlist
