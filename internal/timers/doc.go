// Package timers provides the registry of named, replaceable, cancellable
// scheduled actions used by the box.
//
// Every scheduled action lives in a slot. A slot holds at most one live
// handle; scheduling into an occupied slot cancels the previous handle and
// installs the new one under the registry's own mutex. That mutex is never
// held while an action runs and never nested with the box state lock.
//
// Each handle carries its own cancellation flag, checked under the registry
// mutex at the moment the timer fires. A handle that lost the race against
// Cancel or a replacement therefore never runs its action, even if the
// underlying time.Timer had already expired.
package timers
