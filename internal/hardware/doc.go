// Package hardware names the box's digital lines and abstracts access to them.
//
// The control core never touches pins directly. It reads and writes named
// lines (Input, Output) through the Lines interface, which is injected at
// construction. Two implementations exist:
//   - SysfsGPIO drives the Raspberry Pi through the kernel sysfs GPIO interface
//   - Fake is an in-memory bench used by tests and by the "fake" driver
//
// Polarity is fixed per line role and lives here, not in the callers:
//   - flap end-position sensors, mailbox contact and both emptying doors are active low
//   - the delivery door contact reads HIGH while the door is open
//   - the door-opener buttons and the motion sensor are active high
//   - drive relays are active low; the door lock is engaged at LOW
//   - every output rests HIGH (relays released, lock open)
package hardware
