// Package types defines the shared vocabulary of the crew orchestration
// core: agent archetype enumerations, scheduling priorities, and the
// structured error taxonomy used across all components.
//
// It is the lowest-level package with no internal dependencies, so every
// other package can import it without creating cycles.
package types
