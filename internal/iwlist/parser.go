package iwlist

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/iwscan/internal/model"
)

// CellMarker is the first token of a line that starts a new cell.
const CellMarker = "Cell"

// addressToken precedes the hardware address on a cell line.
const addressToken = "Address:"

// bitRatePattern matches a labelled "Bit Rates:" line or a continuation
// line made only of "<number> Mb/s" tokens joined by "; ".
var bitRatePattern = regexp.MustCompile(
	`^(?:Bit Rates|[0-9]+(?:\.[0-9]+)? Mb/s(?:; [0-9]+(?:\.[0-9]+)? Mb/s)*$)`,
)

// Parser converts iwlist scan output into access point records.
//
// A Parser only carries options and is safe for concurrent use.
type Parser struct {
	// lenient switches from fail-fast to skip-and-continue on malformed input.
	lenient bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithLenient configures how malformed input is handled.
// When false (default), Parse stops at the first malformed line.
// When true, a malformed cell line causes the lines of that cell to be
// skipped, a malformed Channel value is left unset, and all errors are
// returned joined together once the whole report has been read.
func WithLenient(lenient bool) Option {
	return func(p *Parser) {
		p.lenient = lenient
	}
}

// NewParser creates a Parser with the given options.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Lenient reports whether the Parser skips malformed input instead of stopping.
func (p *Parser) Lenient() bool {
	return p.lenient
}

// Parse parses raw with a default (fail-fast) Parser.
func Parse(raw string) ([]*model.AccessPoint, error) {
	return NewParser().Parse(raw)
}

// Parse converts the complete output of one scan into access points,
// in the order the cells appear.
//
// The first line is a banner and is discarded. An empty report yields an
// empty, non-nil slice.
//
// In fail-fast mode the returned slice holds the cells completed before the
// malformed one, together with a *ParseError. In lenient mode it holds every
// well-formed cell and the error, if any, joins one *ParseError per problem.
func (p *Parser) Parse(raw string) ([]*model.AccessPoint, error) {
	cells := make([]*model.AccessPoint, 0)
	var current *model.AccessPoint
	var errs []error

	lines := strings.Split(raw, "\n")
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		if isCellLine(line) {
			cell, err := parseCellLine(line)
			if err != nil {
				perr := &ParseError{Line: i + 1, Text: line, Err: err}
				if !p.lenient {
					return cells, perr
				}
				errs = append(errs, perr)
				current = nil
				continue
			}
			cells = append(cells, cell)
			current = cell
			continue
		}

		// Field lines before the first cell have nothing to attach to.
		if current == nil {
			continue
		}

		if err := applyField(current, line); err != nil {
			perr := &ParseError{Line: i + 1, Text: line, Err: err}
			if !p.lenient {
				// current is always the last cell appended; it is incomplete.
				return cells[:len(cells)-1], perr
			}
			errs = append(errs, perr)
		}
	}

	return cells, errors.Join(errs...)
}

// isCellLine reports whether the first whitespace-delimited token is the cell marker.
func isCellLine(line string) bool {
	fields := strings.Fields(line)
	return len(fields) > 0 && fields[0] == CellMarker
}

// parseCellLine builds a new access point from a line such as
// "Cell 01 - Address: 00:11:22:33:44:55".
func parseCellLine(line string) (*model.AccessPoint, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[1] == addressToken {
		return nil, fmt.Errorf("%w: missing cell ordinal", ErrMalformedRecordStart)
	}

	for i, tok := range fields {
		if tok != addressToken {
			continue
		}
		if i+1 >= len(fields) {
			return nil, fmt.Errorf("%w: missing value after %s", ErrMalformedRecordStart, addressToken)
		}
		return model.NewAccessPoint(fields[0]+fields[1], fields[i+1]), nil
	}

	return nil, fmt.Errorf("%w: missing %s", ErrMalformedRecordStart, addressToken)
}

// applyField updates ap from a single field line.
// Only a malformed Channel value produces an error; every other field is
// left unset when its delimiter is missing.
func applyField(ap *model.AccessPoint, line string) error {
	switch {
	case strings.HasPrefix(line, "Channel"):
		ch, ok, err := channelField(line)
		if err != nil {
			return err
		}
		if ok {
			ap.Channel = ch
		}

	case strings.HasPrefix(line, "Frequency"):
		if v, ok := frequencyField(line); ok {
			ap.Frequency = v
		}

	case strings.HasPrefix(line, "Quality"):
		quality, signal := qualityFields(line)
		if quality != nil {
			ap.Quality = *quality
		}
		if signal != nil {
			ap.SignalLevel = *signal
		}

	case strings.HasPrefix(line, "Encryption"):
		if v, ok := afterColon(line); ok {
			ap.EncryptionKeyStatus = v
		}

	case strings.HasPrefix(line, "ESSID"):
		if v, ok := essidField(line); ok {
			ap.ESSID = v
		}

	case bitRatePattern.MatchString(line):
		ap.BitRates = append(ap.BitRates, bitRatesField(line)...)

	case strings.HasPrefix(line, "Mode"):
		if v, ok := afterColon(line); ok {
			ap.Mode = v
		}

	case strings.HasPrefix(line, "Group Cipher"):
		if v, ok := afterColonSpace(line); ok {
			ap.GroupCipher = v
		}

	case strings.HasPrefix(line, "Pairwise Ciphers"):
		if v, ok := afterColonSpace(line); ok {
			ap.PairwiseCiphers = append(ap.PairwiseCiphers, v)
		}

	case strings.HasPrefix(line, "Authentication Suite"):
		if v, ok := afterColonSpace(line); ok {
			ap.AuthenticationSuites = append(ap.AuthenticationSuites, v)
		}

	case strings.HasPrefix(line, "Extra"), strings.HasPrefix(line, "IE:"):
		ap.Extra = append(ap.Extra, line)
	}

	return nil
}

// afterColon returns the text after the first ':'.
func afterColon(line string) (string, bool) {
	_, v, ok := strings.Cut(line, ":")
	return v, ok
}

// afterColonSpace returns the text after the first ": ".
func afterColonSpace(line string) (string, bool) {
	_, v, ok := strings.Cut(line, ": ")
	return v, ok
}

// channelField parses "Channel:6".
func channelField(line string) (int, bool, error) {
	v, ok := afterColon(line)
	if !ok {
		return 0, false, nil
	}
	ch, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false, fmt.Errorf("%w: channel %q", ErrMalformedInteger, v)
	}
	return ch, true, nil
}

// frequencyField parses "Frequency:2.412 GHz (Channel 1)" into "2.412GHz".
func frequencyField(line string) (string, bool) {
	v, ok := afterColon(line)
	if !ok {
		return "", false
	}
	parts := strings.Fields(v)
	switch len(parts) {
	case 0:
		return "", false
	case 1:
		return parts[0], true
	default:
		return parts[0] + parts[1], true
	}
}

// qualityFields parses "Quality=70/70  Signal level=-40 dBm".
// The two halves are separated by two spaces; a nil result means that half
// had no '='.
func qualityFields(line string) (quality, signal *string) {
	parts := strings.Split(line, "  ")

	if _, v, ok := strings.Cut(parts[0], "="); ok {
		quality = &v
	}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, v, ok := strings.Cut(part, "="); ok {
			signal = &v
		}
		break
	}

	return quality, signal
}

// essidField parses `ESSID:"home-network"`, removing one layer of quotes.
func essidField(line string) (string, bool) {
	v, ok := afterColon(line)
	if !ok {
		return "", false
	}
	v = strings.TrimPrefix(v, `"`)
	v = strings.TrimSuffix(v, `"`)
	return v, true
}

// bitRatesField splits a labelled or continuation bit rate line into rates.
func bitRatesField(line string) []string {
	list := line
	if strings.HasPrefix(line, "Bit Rates") {
		v, ok := afterColon(line)
		if !ok {
			return nil
		}
		list = v
	}

	var rates []string
	for _, rate := range strings.Split(list, "; ") {
		rate = strings.TrimSpace(rate)
		if rate != "" {
			rates = append(rates, rate)
		}
	}
	return rates
}
