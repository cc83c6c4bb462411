package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys contains attribute keys that should always be sanitized.
var sensitiveKeys = map[string]bool{
	// WPA personal
	"psk":            true,
	"wpa_psk":        true,
	"passphrase":     true,
	"wpa_passphrase": true,
	"sae_password":   true,

	// WEP
	"wep_key":  true,
	"wep_key0": true,
	"wep_key1": true,
	"wep_key2": true,
	"wep_key3": true,

	// 802.1X / EAP
	"identity":           true,
	"anonymous_identity": true,
	"private_key":        true,
	"private_key_passwd": true,

	// Generic
	"password":   true,
	"passwd":     true,
	"secret":     true,
	"token":      true,
	"credential": true,
}

// sensitivePatterns contains regex patterns that indicate sensitive values.
// Values matching these patterns will be sanitized regardless of key name.
var sensitivePatterns = []*regexp.Regexp{
	// Raw WPA PSK as produced by wpa_passphrase.
	regexp.MustCompile(`^[0-9a-fA-F]{64}$`),

	// psk=... or wpa_passphrase=... assignments, quoted or not.
	regexp.MustCompile(`(?i)\b(?:psk|wpa_passphrase|sae_password|password)\s*=`),

	// Private key markers from EAP-TLS client certificates.
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// hardwareAddrPattern matches a 48-bit MAC address in colon or hyphen notation.
var hardwareAddrPattern = regexp.MustCompile(
	`\b([0-9A-Fa-f]{2}[:-][0-9A-Fa-f]{2}[:-][0-9A-Fa-f]{2})[:-][0-9A-Fa-f]{2}[:-][0-9A-Fa-f]{2}[:-][0-9A-Fa-f]{2}\b`,
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// maskedHardwareAddrSuffix replaces the device-specific half of a hardware
// address. The vendor prefix is kept.
const maskedHardwareAddrSuffix = ":**:**:**"

// SecureHandler wraps an slog.Handler to sanitize sensitive information.
// It intercepts log records and sanitizes attribute values that match
// sensitive key names or value patterns before passing them to the
// underlying handler.
type SecureHandler struct {
	// handler is the underlying slog handler that receives sanitized records.
	handler slog.Handler

	// maskHardwareAddrs enables masking of MAC addresses in string values.
	maskHardwareAddrs bool
}

// HandlerOption configures a SecureHandler.
type HandlerOption func(*SecureHandler)

// WithMaskHardwareAddrs masks the last three octets of every hardware
// address found in string values.
func WithMaskHardwareAddrs(mask bool) HandlerOption {
	return func(h *SecureHandler) {
		h.maskHardwareAddrs = mask
	}
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, the returned SecureHandler will use slog.Default().Handler().
func NewSecureHandler(handler slog.Handler, opts ...HandlerOption) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	h := &SecureHandler{handler: handler}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and passes it to the underlying handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	msg := r.Message
	if h.maskHardwareAddrs {
		msg = maskHardwareAddrs(msg)
	}

	sanitized := slog.NewRecord(r.Time, r.Level, msg, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})

	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are sanitized before being added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = h.sanitizeAttr(a)
	}
	return &SecureHandler{
		handler:           h.handler.WithAttrs(sanitizedAttrs),
		maskHardwareAddrs: h.maskHardwareAddrs,
	}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{
		handler:           h.handler.WithGroup(name),
		maskHardwareAddrs: h.maskHardwareAddrs,
	}
}

// sanitizeAttr sanitizes a single attribute, recursively handling groups.
func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = h.sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	if sensitiveKeys[keyLower] || containsSensitiveKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	// Errors are rendered as strings so that text quoted from scan output
	// is checked as well.
	var strVal string
	switch a.Value.Kind() {
	case slog.KindString:
		strVal = a.Value.String()
	case slog.KindAny:
		err, ok := a.Value.Any().(error)
		if !ok {
			return a
		}
		strVal = err.Error()
	default:
		return a
	}

	if isSensitiveValue(strVal) {
		return slog.String(a.Key, MaskValue)
	}
	if h.maskHardwareAddrs {
		if masked := maskHardwareAddrs(strVal); masked != strVal {
			return slog.String(a.Key, masked)
		}
	}

	return a
}

// containsSensitiveKeyword checks if the key contains sensitive keywords.
// The bare "key" keyword is excluded because it matches "key_mgmt" and
// "encryption_key_status", which are not secret.
func containsSensitiveKeyword(key string) bool {
	sensitiveKeywords := []string{
		"password", "passwd", "passphrase", "secret", "token", "psk",
	}

	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue checks if a value matches sensitive patterns.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// maskHardwareAddrs replaces the device half of every hardware address in s.
func maskHardwareAddrs(s string) string {
	return hardwareAddrPattern.ReplaceAllString(s, "${1}"+maskedHardwareAddrSuffix)
}

// NewSecureLogger creates a new slog.Logger with secure handling.
// The logger sanitizes sensitive information in all log output.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewSecureLogger(w io.Writer, verbose bool, opts ...HandlerOption) *slog.Logger {
	textHandler := slog.NewTextHandler(w, handlerOptions(verbose))
	return slog.New(NewSecureHandler(textHandler, opts...))
}

// NewSecureJSONLogger creates a new slog.Logger with secure handling
// that outputs JSON format.
func NewSecureJSONLogger(w io.Writer, verbose bool, opts ...HandlerOption) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(w, handlerOptions(verbose))
	return slog.New(NewSecureHandler(jsonHandler, opts...))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
