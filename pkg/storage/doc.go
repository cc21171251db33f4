// Package storage provides utilities shared across storage adapter
// implementations, currently the sentinel errors.
//
// Storage adapters (memory, postgres) implement the orchestrator.Store
// interface defined in pkg/orchestrator/store.go. This package
// contains only shared types and helpers, not the interface itself.
package storage
