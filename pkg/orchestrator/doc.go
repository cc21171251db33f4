// Package orchestrator coordinates the sandbox lifecycle. It is the only
// component that writes sandbox status: every lifecycle request flows
// through it, drives the container engine and the git backend in order,
// and maps the outcome back into the persisted record.
//
// Mutating operations on the same sandbox id are serialized through a
// per-id lock table so concurrent start/stop calls cannot interleave their
// engine calls and record writes. Unrelated sandboxes proceed in parallel,
// and reads bypass the locks entirely.
package orchestrator
