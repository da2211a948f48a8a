// Package logger builds the application's zap loggers and provides helpers
// for enriching them with request ray ids and engine operation ids.
package logger
