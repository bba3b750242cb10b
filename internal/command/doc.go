// Package command runs operator commands against the box.
//
// Commands arrive over MQTT on <command prefix>/<name> or through the HTTP
// API; both go through Execute. MQTT commands are acknowledged on
// <ack prefix>/<id>, where id is taken from the request payload or
// generated.
//
// Supported commands: open, close, reset, lock, unlock, cancel.
package command
