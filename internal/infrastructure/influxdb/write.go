package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the box.
const (
	MeasurementCycle = "flap_cycle"
	MeasurementInput = "input_edge"
	MeasurementFault = "fault"
	MeasurementEvent = "box_event"
)

// WriteCycle records one completed open or close cycle of the flaps.
//
//	client.WriteCycle("open", true, 65*time.Second)
func (c *Client) WriteCycle(direction string, ok bool, elapsed time.Duration) {
	c.write(MeasurementCycle,
		map[string]string{"direction": direction},
		map[string]any{
			"ok":              ok,
			"elapsed_seconds": elapsed.Seconds(),
		})
}

// WriteInputEdge records a debounced transition of an input line.
func (c *Client) WriteInputEdge(input string, active bool) {
	c.write(MeasurementInput,
		map[string]string{"input": input},
		map[string]any{"active": active})
}

// WriteFault records a component entering an error condition.
func (c *Client) WriteFault(component, reason string) {
	c.write(MeasurementFault,
		map[string]string{"component": component},
		map[string]any{"reason": reason})
}

// WriteEvent records an ON/OFF event channel change.
func (c *Client) WriteEvent(channel string, on bool) {
	c.write(MeasurementEvent,
		map[string]string{"channel": channel},
		map[string]any{"on": on})
}

func (c *Client) write(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(newPoint(c.site, measurement, tags, fields, time.Now()))
}

// newPoint builds a point tagged with the site it came from.
func newPoint(site, measurement string, tags map[string]string, fields map[string]any, ts time.Time) *write.Point {
	all := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		all[k] = v
	}
	if site != "" {
		all["site"] = site
	}
	return write.NewPoint(measurement, all, fields, ts)
}
