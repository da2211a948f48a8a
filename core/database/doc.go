// Package database manages the optional MySQL connection used for the
// operation audit log. The connection is optional by design: when it is
// unavailable the engine runs without history, it never fails an operation.
package database
