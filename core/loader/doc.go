// Package loader wires self-contained features into the HTTP application
// at startup.
package loader
