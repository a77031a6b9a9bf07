// Package dispatch runs per-item enrichment with bounded parallelism.
//
// Tasks start in FIFO order whenever a slot is free; SelectNextBatch is the
// pure scheduling step applied after every enqueue and every slot release.
// A settled task keeps its slot for a short grace period before the next
// task may start, which also keeps its id "active" so a repeated visibility
// notification for the same item is dropped.
//
// Runner errors and panics are reported to the settle callback and never stop
// the dispatcher.
package dispatch
