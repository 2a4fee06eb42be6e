// Package logging provides structured logging for hubmaker.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the client. It provides both general logging
// functions and specialized functions for hub-specific logging needs.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (API requests, event payloads, dispatch)
//   - Info: Normal operations (startup, device loads, listener lifecycle)
//   - Warn: Non-fatal issues (events for unknown devices, admin page access)
//   - Error: Fatal issues (startup failures, parse errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Device loaded",
//	    zap.String("device_id", "1922"),
//	    zap.String("label", "Bedroom Light"),
//	)
//
// # Specialized Logging
//
// The package provides domain-specific logging functions:
//
//	logging.LogRequest("GET", url, resp.StatusCode)
//	logging.LogEvent(deviceID, displayName, name, value)
//	logging.LogDispatch(deviceID, listenerCount)
//
// # Configuration
//
// CLI commands are silent by default. Set HUBMAKER_LOG_LEVEL to enable
// output, or initialize explicitly at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
