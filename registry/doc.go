// Package registry implements the agent archetype catalog. Definitions are
// validated on registration, immutable afterwards, and resolved by type at
// crew construction time.
//
// The registry is an explicitly constructed object injected into the
// components that need it; Clear exists for test isolation instead of any
// package-level mutable state.
package registry
