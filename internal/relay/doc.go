// Package relay implements the real-time presence and message-relay core for
// the Nexus chat service.
//
// The implementation is organized into specialized files for authentication,
// the connection registry, presence fan-out, event routing, per-connection
// lifecycle, configuration, and HTTP wiring to keep the codebase maintainable
// and testable as the project grows.
package relay
