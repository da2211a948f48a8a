// Package profile is the permission-metadata feature: the service that
// wires the sync engine, the configured org sources, the local metadata
// tree and the audit log together, and the HTTP handlers exposing it.
package profile
