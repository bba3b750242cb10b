package sensor

import "errors"

// ErrSensorFault wraps any failure to read an input line.
var ErrSensorFault = errors.New("sensor: read fault")
