// Package influxdb provides InfluxDB connectivity for Paketbox Core.
//
// It records the box's operating history as time series:
//   - flap_cycle: every open/close cycle with its outcome and duration
//   - input_edge: debounced transitions of the input lines
//   - fault: components entering an error condition
//   - box_event: ON/OFF event channel changes
//
// Writes are non-blocking and batched; a slow or absent server never
// delays the control core.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry switched off
//	}
//	defer client.Close()
//
//	client.WriteCycle("close", true, 65*time.Second)
package influxdb
