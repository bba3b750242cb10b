// Package maintenance keeps wear counters for the box in SQLite.
//
// Counters are monotonic totals (flap cycles per direction, failed cycles,
// motor run time, deliveries) used to plan maintenance of the drives and
// the lock. No event history is stored.
package maintenance
