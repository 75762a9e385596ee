// Package review implements the quality gates of a crew run: the
// hierarchical manager review loop with a bounded number of revision rounds,
// and the consensus synthesis strategies that merge several member outputs
// into one accepted result.
package review
