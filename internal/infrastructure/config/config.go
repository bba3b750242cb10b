package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Paketbox Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Box       BoxConfig       `yaml:"box"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// BoxConfig contains the timing contract of the actuator control core.
type BoxConfig struct {
	// ClosureDuration is how long the close drives are energised.
	// Default: 65s
	ClosureDuration time.Duration `yaml:"closure_duration"`

	// ReverseSignalDuration is how long the open drives are energised.
	// It is shorter than ClosureDuration so the drive brakes cleanly.
	// Default: 64s
	ReverseSignalDuration time.Duration `yaml:"reverse_signal_duration"`

	// VerifyMargin is added to ClosureDuration before end positions are checked.
	// Default: 1s
	VerifyMargin time.Duration `yaml:"verify_margin"`

	// DebounceInterval is the quiet period between re-samples of an input.
	// Default: 200ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// StabilitySamples is the number of re-samples in the extended stability check.
	// Default: 20
	StabilitySamples int `yaml:"stability_samples"`

	// PollInterval is how often all inputs are sampled.
	// Default: 1s
	PollInterval time.Duration `yaml:"poll_interval"`

	// GracePeriod is the delay between the delivery door closing and the flaps opening.
	// Default: 10s
	GracePeriod time.Duration `yaml:"grace_period"`

	// InterferenceWindow is how long non-critical inputs are ignored after a motor start.
	// Default: 1s
	InterferenceWindow time.Duration `yaml:"interference_window"`

	// ErrorReportInterval throttles repeated error status publications.
	// Default: 5s
	ErrorReportInterval time.Duration `yaml:"error_report_interval"`

	// DoorOpenWatchdog warns when the delivery door stays open this long.
	// Zero disables the watchdog. Default: 15m
	DoorOpenWatchdog time.Duration `yaml:"door_open_watchdog"`
}

// GPIOConfig contains the digital line assignment (BCM numbering).
type GPIOConfig struct {
	// Driver selects the line implementation: "sysfs" or "fake".
	Driver  string            `yaml:"driver"`
	Inputs  GPIOInputsConfig  `yaml:"inputs"`
	Outputs GPIOOutputsConfig `yaml:"outputs"`
}

// GPIOInputsConfig maps every input role to its pin.
type GPIOInputsConfig struct {
	LeftFlapClosed      uint `yaml:"left_flap_closed"`
	LeftFlapOpen        uint `yaml:"left_flap_open"`
	RightFlapClosed     uint `yaml:"right_flap_closed"`
	RightFlapOpen       uint `yaml:"right_flap_open"`
	DeliveryDoor        uint `yaml:"delivery_door"`
	MailboxContact      uint `yaml:"mailbox_contact"`
	MailboxEmptyingDoor uint `yaml:"mailbox_emptying_door"`
	BoxEmptyingDoor     uint `yaml:"box_emptying_door"`
	DoorOpenerButtonA   uint `yaml:"door_opener_button_a"`
	DoorOpenerButtonB   uint `yaml:"door_opener_button_b"`
	MotionSensor        uint `yaml:"motion_sensor"`
}

// GPIOOutputsConfig maps every output role to its pin.
type GPIOOutputsConfig struct {
	LeftFlapCloseDrive  uint `yaml:"left_flap_close_drive"`
	LeftFlapOpenDrive   uint `yaml:"left_flap_open_drive"`
	RightFlapCloseDrive uint `yaml:"right_flap_close_drive"`
	RightFlapOpenDrive  uint `yaml:"right_flap_open_drive"`
	Reserved            uint `yaml:"reserved"`
	AuxLightA           uint `yaml:"aux_light_a"`
	AuxLightB           uint `yaml:"aux_light_b"`
	DeliveryDoorLock    uint `yaml:"delivery_door_lock"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	Topics    MQTTTopicsConfig    `yaml:"topics"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// MQTTTopicsConfig contains the topics the box publishes and listens on.
type MQTTTopicsConfig struct {
	Status          string `yaml:"status"`
	State           string `yaml:"state"`
	Delivery        string `yaml:"delivery"`
	Mailbox         string `yaml:"mailbox"`
	MailboxEmptying string `yaml:"mailbox_emptying"`
	BoxEmptying     string `yaml:"box_emptying"`
	Command         string `yaml:"command"`
	Ack             string `yaml:"ack"`
	Availability    string `yaml:"availability"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings for the operator API.
type SecurityConfig struct {
	JWT      JWTConfig      `yaml:"jwt"`
	Operator OperatorConfig `yaml:"operator"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// OperatorConfig holds the single operator account allowed to command the box.
type OperatorConfig struct {
	Username string `yaml:"username"`

	// PasswordHash is an Argon2id PHC string.
	PasswordHash string `yaml:"password_hash"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PAKETBOX_SECTION_KEY
// For example: PAKETBOX_DATABASE_PATH, PAKETBOX_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with the production defaults of the box.
// Pin numbers match the reference wiring of the enclosure.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "paketbox-01",
			Name: "Paketbox",
		},
		Box: BoxConfig{
			ClosureDuration:       65 * time.Second,
			ReverseSignalDuration: 64 * time.Second,
			VerifyMargin:          time.Second,
			DebounceInterval:      200 * time.Millisecond,
			StabilitySamples:      20,
			PollInterval:          time.Second,
			GracePeriod:           10 * time.Second,
			InterferenceWindow:    time.Second,
			ErrorReportInterval:   5 * time.Second,
			DoorOpenWatchdog:      15 * time.Minute,
		},
		GPIO: GPIOConfig{
			Driver: "sysfs",
			Inputs: GPIOInputsConfig{
				LeftFlapClosed:      27,
				LeftFlapOpen:        17,
				RightFlapClosed:     9,
				RightFlapOpen:       22,
				DeliveryDoor:        23,
				MailboxContact:      24,
				MailboxEmptyingDoor: 25,
				BoxEmptyingDoor:     12,
				DoorOpenerButtonA:   8,
				DoorOpenerButtonB:   7,
				MotionSensor:        11,
			},
			Outputs: GPIOOutputsConfig{
				LeftFlapCloseDrive:  5,
				LeftFlapOpenDrive:   6,
				RightFlapCloseDrive: 13,
				RightFlapOpenDrive:  16,
				Reserved:            14,
				AuxLightA:           20,
				AuxLightB:           15,
				DeliveryDoorLock:    26,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/paketbox.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "paketbox-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			Topics: MQTTTopicsConfig{
				Status:          "home/raspi/paketbox_text",
				State:           "paketbox/state",
				Delivery:        "paketbox/event/paketbox",
				Mailbox:         "paketbox/event/briefkasten",
				MailboxEmptying: "paketbox/event/briefkastenleeren",
				BoxEmptying:     "paketbox/event/paketboxleeren",
				Command:         "paketbox/command",
				Ack:             "paketbox/ack",
				Availability:    "paketbox/availability",
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 15,
			},
			Operator: OperatorConfig{
				Username: "admin",
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: PAKETBOX_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("PAKETBOX_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("PAKETBOX_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PAKETBOX_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("PAKETBOX_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PAKETBOX_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// GPIO
	if v := os.Getenv("PAKETBOX_GPIO_DRIVER"); v != "" {
		cfg.GPIO.Driver = v
	}

	// InfluxDB
	if v := os.Getenv("PAKETBOX_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security
	if v := os.Getenv("PAKETBOX_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("PAKETBOX_OPERATOR_PASSWORD_HASH"); v != "" {
		cfg.Security.Operator.PasswordHash = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	errs = append(errs, c.Box.validate()...)

	switch c.GPIO.Driver {
	case "sysfs", "fake":
	default:
		errs = append(errs, `gpio.driver must be "sysfs" or "fake"`)
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Topics.Status == "" || c.MQTT.Topics.Command == "" {
		errs = append(errs, "mqtt.topics.status and mqtt.topics.command are required")
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}

		// The API can physically open the box, so it must never run unauthenticated.
		const minJWTSecretLength = 32
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required (set PAKETBOX_JWT_SECRET environment variable)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
		}
		if c.Security.Operator.PasswordHash == "" {
			errs = append(errs, "security.operator.password_hash is required when the API is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validate checks the timing contract.
func (b BoxConfig) validate() []string {
	var errs []string

	if b.ClosureDuration <= 0 {
		errs = append(errs, "box.closure_duration must be positive")
	}
	if b.ReverseSignalDuration <= 0 || b.ReverseSignalDuration > b.ClosureDuration {
		errs = append(errs, "box.reverse_signal_duration must be positive and not exceed box.closure_duration")
	}
	if b.VerifyMargin < 0 {
		errs = append(errs, "box.verify_margin must not be negative")
	}
	if b.DebounceInterval <= 0 {
		errs = append(errs, "box.debounce_interval must be positive")
	}
	if b.StabilitySamples < 1 {
		errs = append(errs, "box.stability_samples must be at least 1")
	}
	if b.PollInterval <= 0 {
		errs = append(errs, "box.poll_interval must be positive")
	}
	if b.GracePeriod <= 0 {
		errs = append(errs, "box.grace_period must be positive")
	}
	if b.InterferenceWindow < 0 {
		errs = append(errs, "box.interference_window must not be negative")
	}
	if b.ErrorReportInterval <= 0 {
		errs = append(errs, "box.error_report_interval must be positive")
	}
	if b.DoorOpenWatchdog < 0 {
		errs = append(errs, "box.door_open_watchdog must not be negative")
	}

	return errs
}

// VerifyDelay returns how long after a motor start the end positions are checked.
func (b BoxConfig) VerifyDelay() time.Duration {
	return b.ClosureDuration + b.VerifyMargin
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
