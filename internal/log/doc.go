// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// Wireless tooling tends to log things that should not end up in shared log
// files: WPA pre-shared keys and passphrases from supplicant configuration,
// 802.1X identities, and the hardware addresses of nearby access points,
// which identify their owners and locations.
//
// # Security Features
//
// The SecureHandler sanitizes:
//   - Values of sensitive keys (password, passphrase, psk, secret, token, identity)
//   - Values that look like a raw 64-hex WPA PSK or a psk= assignment
//   - Optionally, hardware addresses inside any string value (WithMaskHardwareAddrs)
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose,
//	    log.WithMaskHardwareAddrs(true))
//	slog.SetDefault(logger)
//
//	logger.Warn("association failed",
//	    "psk", "correct horse battery staple", // logged as ***REDACTED***
//	    "bssid", "00:11:22:33:44:55",          // logged as 00:11:22:**:**:**
//	)
package log
