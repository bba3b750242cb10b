// Package motor drives the two flap motors through open and close cycles.
//
// A cycle energises both drive relays of one direction, resets each relay
// after its run time and verifies the end position once the mechanism has
// had time to finish. Both flaps move together and fail together: if either
// flap misses its end position both flaps and both motors are marked ERROR.
//
// A successful open cycle starts a close cycle automatically. A successful
// close cycle releases the delivery door lock.
package motor
