// Package access controls the delivery door lock and turns confirmed door
// transitions into flap cycles.
//
// When the courier closes the door a grace period starts. If the door is
// still closed when it ends, the door is locked and the flaps open to drop
// the parcel. Reopening the door during the grace period aborts the
// delivery. Opening the door while both flaps hang open closes them.
//
// A watchdog warns when the delivery door is left open.
package access
