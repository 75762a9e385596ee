// Package taskgraph owns the directed acyclic task graph of a crew run:
// task creation, dependency resolution, status transitions, and assignment.
//
// The graph is a flat task table keyed by id with adjacency lists of ids, so
// cycle detection and serialization stay straightforward. Submission is
// all-or-nothing: a cycle rejects the whole graph before any task becomes
// schedulable.
package taskgraph
