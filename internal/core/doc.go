// Package core is the orchestration layer.  It composes the transport
// and the relay capability into a listener and provides a builder that
// assembles one from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  capability  →  session  →  core  →  cmd (CLI)
package core
