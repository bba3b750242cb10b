package sensor

import (
	"context"

	"github.com/nerrad567/paketbox-core/internal/box"
	"github.com/nerrad567/paketbox-core/internal/hardware"
	"github.com/nerrad567/paketbox-core/internal/notify"
)

// Binding describes how one input line is handled.
type Binding struct {
	Input hardware.Input

	// Critical inputs use the extended stability check and ignore the
	// interference window.
	Critical bool

	// OnActive and OnInactive run after an edge to the active or inactive
	// level has been confirmed. Either may be nil.
	OnActive   func(ctx context.Context)
	OnInactive func(ctx context.Context)

	// OnFault runs when the line cannot be read. May be nil.
	OnFault func(err error)
}

// DoorListener is told about confirmed delivery door transitions.
// The access controller implements it.
type DoorListener interface {
	DeliveryDoorClosed()
	DeliveryDoorOpened()
}

// BoxBindings returns the standard handling for all eleven inputs.
func BoxBindings(state *box.State, door DoorListener, n notify.Notifier) []Binding {
	flap := func(in hardware.Input, commit func(box.DoorStatus) bool, status box.DoorStatus) Binding {
		return Binding{
			Input:    in,
			Critical: true,
			OnActive: func(context.Context) { commit(status) },
			OnFault:  func(error) { commit(box.DoorError) },
		}
	}

	event := func(in hardware.Input, ch notify.Channel, text string) Binding {
		return Binding{
			Input: in,
			OnActive: func(context.Context) {
				n.PublishEvent(ch, notify.On)
				if text != "" {
					n.PublishStatus(text)
				}
			},
			OnInactive: func(context.Context) { n.PublishEvent(ch, notify.Off) },
		}
	}

	status := func(in hardware.Input, text string) Binding {
		return Binding{
			Input:    in,
			OnActive: func(context.Context) { n.PublishStatus(text) },
		}
	}

	return []Binding{
		flap(hardware.LeftFlapClosed, state.CommitLeftDoor, box.DoorClosed),
		flap(hardware.LeftFlapOpen, state.CommitLeftDoor, box.DoorOpen),
		flap(hardware.RightFlapClosed, state.CommitRightDoor, box.DoorClosed),
		flap(hardware.RightFlapOpen, state.CommitRightDoor, box.DoorOpen),
		{
			Input:    hardware.DeliveryDoor,
			Critical: true,
			OnActive: func(context.Context) {
				if !state.CommitDeliveryDoor(box.DoorOpen) {
					return
				}
				n.PublishEvent(notify.ChannelDelivery, notify.On)
				door.DeliveryDoorOpened()
			},
			OnInactive: func(context.Context) {
				if !state.CommitDeliveryDoor(box.DoorClosed) {
					return
				}
				n.PublishEvent(notify.ChannelDelivery, notify.Off)
				door.DeliveryDoorClosed()
			},
			OnFault: func(error) { state.CommitDeliveryDoor(box.DoorError) },
		},
		event(hardware.MailboxContact, notify.ChannelMailbox, "Mail delivered"),
		event(hardware.MailboxEmptyingDoor, notify.ChannelMailboxEmptying, ""),
		event(hardware.BoxEmptyingDoor, notify.ChannelBoxEmptying, ""),
		status(hardware.DoorOpenerButtonA, "Garden gate button A pressed"),
		status(hardware.DoorOpenerButtonB, "Garden gate button B pressed"),
		status(hardware.MotionSensor, "Motion detected at the parcel box"),
	}
}
