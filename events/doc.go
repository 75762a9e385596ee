// Package events defines the typed outbound event stream of a crew run.
//
// The bus is a bounded queue owned by one run: emission order is the stream
// order, backpressure is explicit (full stream drops, counted and logged),
// and observers can never block the run loop.
package events
