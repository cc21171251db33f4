// Package api defines the core types for the codeopen sandbox control plane.
//
// This package provides the data types shared by every layer of sandboxd:
// the Sandbox record, the closed Status enumeration with its transition
// rules, the error taxonomy, ID generation, and request validation.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O. The Sandbox record's field set is the durable contract:
// anything reading or writing sandbox rows directly must honor it.
//
// Core types:
//   - [Sandbox]: the persisted record for one sandbox
//   - [Status]: normalized lifecycle status (created, starting, running, stopping, stopped, error)
//   - [SandboxInfo]: merged record + live engine view returned to callers
//   - [CreateSandboxRequest]: caller input for sandbox creation
//   - [APIError]: structured error with kind, code, param, and message
package api
