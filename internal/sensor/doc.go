// Package sensor turns raw input samples into confirmed box events.
//
// The Poller samples every input line once per poll interval and compares
// each sample with the previous one. A change is an edge; each edge is
// handed to its own goroutine so a slow confirmation never delays the next
// poll.
//
// Edges are confirmed by the Filter before anything is committed:
//   - critical inputs (flap end positions, delivery door) must hold their
//     level through the extended stability check
//   - non-critical inputs need a single re-check after the quiet period and
//     are discarded while the motor interference window is active
//
// A read fault on a critical input commits ERROR for the matching door;
// faults on non-critical inputs are only logged.
package sensor
