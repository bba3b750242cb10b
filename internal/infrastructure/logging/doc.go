// Package logging provides structured logging for Paketbox Core.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same default fields (service, version) and the same
// level filtering.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, or a file path
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	motorLog := logger.With("component", "motor")
//	motorLog.Info("drive started", "direction", "close")
//
// Never log secrets, tokens or password hashes.
package logging
