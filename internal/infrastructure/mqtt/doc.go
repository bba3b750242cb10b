// Package mqtt provides MQTT client connectivity for Paketbox Core.
//
// The broker is the box's link to the home automation system. Through it
// the core publishes:
//   - The human-readable status line (home/raspi/paketbox_text)
//   - ON/OFF event channels for delivery, mailbox and emptying doors
//   - A retained JSON snapshot of the full box state
//   - Its own availability, with a Last Will for unexpected disconnects
//
// It also listens for remote commands (open, close, reset, ...) on the
// command topic and acknowledges them per request.
//
// Publishing never blocks the control core for long: every operation has
// a bounded wait and returns ErrNotConnected when the broker is gone.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.NewTopics(cfg.MQTT.Topics)
//	client.Publish(topics.Status(), []byte("Paketbox bereit"), 1, false)
package mqtt
