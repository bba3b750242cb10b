// Package controller assembles the box control core and runs it.
//
// It owns the shared box.State and the timer registry, wires the sensor
// poller, motor sequencer, access controller and recovery manager together,
// and exposes the operator operations used by the API and remote commands.
//
// Run synchronises state with the sensors, then polls inputs, watches for
// errors and fans out state changes until its context ends. On the way out
// every pending timer is cancelled and every output returned to rest.
package controller
