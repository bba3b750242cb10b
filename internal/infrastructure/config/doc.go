// Package config handles loading and validating Paketbox Core configuration.
//
// This package manages:
//   - The timing contract of the box (drive durations, debounce, grace period)
//   - The digital line assignment (BCM pin per input and output role)
//   - Broker, database, telemetry and operator API settings
//
// Durations in the box section are written as Go duration strings
// ("65s", "200ms", "15m").
//
// Security Considerations:
//   - The JWT secret and the operator password hash should come from the environment
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Box.ClosureDuration)
package config
