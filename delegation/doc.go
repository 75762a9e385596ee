// Package delegation brokers task hand-off between crew members.
//
// The hub matches a request's required capability set against idle members,
// reserves supervisor capacity for the chosen candidate, and tracks the
// request/response lifecycle: accept starts execution, reject re-delegates
// within a bounded attempt budget, exhaustion escalates.
package delegation
