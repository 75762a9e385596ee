// Package crew ties the orchestration core together: a Crew is a named
// roster of agent members under one process type, and the Coordinator
// drives a kickoff from task submission to a terminal CrewResult, wiring
// the registry, health supervisor, task graph, delegation hub, and review
// engine while emitting a typed event stream.
package crew
