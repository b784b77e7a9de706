// Package config defines the runtime configuration for simplecom and
// provides helpers for parsing device and tunnel specifications.
package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	scerr "simplecom/internal/errors"
)

// Config holds every tuneable for a single simplecom session.  The
// yaml tags name the config file keys; the env tags name environment
// variables after EnvPrefix.
type Config struct {
	// ── Device ───────────────────────────────────────────────────────
	Device       string        `yaml:"device" env:"DEVICE"` // COM3, /dev/ttyUSB0 or tcp://host:port
	BaudRate     int           `yaml:"baud_rate" env:"BAUD_RATE"`
	DataBits     int           `yaml:"data_bits" env:"DATA_BITS"`
	Parity       string        `yaml:"parity" env:"PARITY"`
	StopBits     string        `yaml:"stop_bits" env:"STOP_BITS"`
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	ConnTimeout  time.Duration `yaml:"conn_timeout" env:"CONN_TIMEOUT"`

	// ── Session ──────────────────────────────────────────────────────
	ConfirmExit bool `yaml:"confirm_exit" env:"CONFIRM_EXIT"`

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string `yaml:"tunnel" env:"TUNNEL"` // raw user@host[:port] from -T
	TunnelEnabled  bool   `yaml:"-"`
	TunnelUser     string `yaml:"-"`
	TunnelHost     string `yaml:"-"`
	TunnelPort     int    `yaml:"-"`
	SSHKeyPath     string `yaml:"ssh_key" env:"SSH_KEY"`
	SSHPassword    bool   `yaml:"ssh_password" env:"SSH_PASSWORD"` // true → prompt interactively
	UseSSHAgent    bool   `yaml:"ssh_agent" env:"SSH_AGENT"`
	StrictHostKey  bool   `yaml:"strict_hostkey" env:"STRICT_HOSTKEY"`
	KnownHostsPath string `yaml:"known_hosts" env:"KNOWN_HOSTS"`

	// ── Output ───────────────────────────────────────────────────────
	Verbose int `yaml:"verbose" env:"VERBOSE"`

	// ── Command line only ────────────────────────────────────────────
	ListPorts  bool   `yaml:"-"`
	DryRun     bool   `yaml:"-"`
	ConfigFile string `yaml:"-"`
}

// ParityMode returns the parsed parity setting.
func (c *Config) ParityMode() (Parity, error) { return ParseParity(c.Parity) }

// StopBitsMode returns the parsed stop bits setting.
func (c *Config) StopBitsMode() (StopBits, error) { return ParseStopBits(c.StopBits) }

// ── Device spec ──────────────────────────────────────────────────────

// NetworkScheme marks a device served by a network serial server.
const NetworkScheme = "tcp://"

// DeviceSpec is a parsed device argument.
type DeviceSpec struct {
	Name    string // as given; shown in the title
	Network bool
	Address string // host:port when Network
}

// ParseDeviceSpec accepts a local port name ("COM3", "/dev/ttyUSB0") or
// "tcp://host:port" for a raw TCP serial server such as ser2net.
func ParseDeviceSpec(s string) (DeviceSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DeviceSpec{}, fmt.Errorf("device name is empty")
	}
	if !strings.HasPrefix(strings.ToLower(s), NetworkScheme) {
		return DeviceSpec{Name: s}, nil
	}

	addr := s[len(NetworkScheme):]
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return DeviceSpec{}, fmt.Errorf("invalid network device %q – expected tcp://host:port", s)
	}
	if host == "" {
		return DeviceSpec{}, fmt.Errorf("network device %q has no host", s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return DeviceSpec{}, fmt.Errorf("invalid port %q in %q", portStr, s)
	}
	return DeviceSpec{Name: s, Network: true, Address: net.JoinHostPort(host, portStr)}, nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ResolveTunnel fills the derived tunnel fields from TunnelSpec.
func (c *Config) ResolveTunnel() error {
	if c.TunnelSpec == "" {
		c.TunnelEnabled = false
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &scerr.ConfigError{Field: "tunnel", Value: c.TunnelSpec, Message: err.Error()}
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Every failure is a *errors.ConfigError.
func (c *Config) Validate() error {
	if c.Verbose < 0 {
		return &scerr.ConfigError{Field: "verbose", Value: c.Verbose, Message: "must not be negative"}
	}
	if c.ListPorts {
		return nil
	}

	if strings.TrimSpace(c.Device) == "" {
		return &scerr.ConfigError{
			Field:   "device",
			Message: "a serial device is required",
			Hint:    "pass the port name, e.g. simplecom COM3 or simplecom /dev/ttyUSB0; --list shows available ports",
		}
	}
	dev, err := ParseDeviceSpec(c.Device)
	if err != nil {
		return &scerr.ConfigError{Field: "device", Value: c.Device, Message: err.Error()}
	}

	if c.BaudRate <= 0 {
		return &scerr.ConfigError{
			Field:   "baud",
			Value:   c.BaudRate,
			Message: "must be positive",
			Hint:    "common rates are 9600, 38400 and 115200",
		}
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return &scerr.ConfigError{Field: "data-bits", Value: c.DataBits, Message: "must be between 5 and 8"}
	}
	if _, err := c.ParityMode(); err != nil {
		return &scerr.ConfigError{
			Field:   "parity",
			Value:   c.Parity,
			Message: err.Error(),
			Hint:    "use none, odd, even, mark or space",
		}
	}
	if _, err := c.StopBitsMode(); err != nil {
		return &scerr.ConfigError{
			Field:   "stop-bits",
			Value:   c.StopBits,
			Message: err.Error(),
			Hint:    "use 1, 1.5 or 2",
		}
	}
	if c.PollInterval <= 0 {
		return &scerr.ConfigError{Field: "poll-interval", Value: c.PollInterval, Message: "must be positive"}
	}
	if c.ConnTimeout < 0 {
		return &scerr.ConfigError{Field: "timeout", Value: c.ConnTimeout, Message: "must not be negative"}
	}

	if c.TunnelSpec != "" {
		if !dev.Network {
			return &scerr.ConfigError{
				Field:   "tunnel",
				Value:   c.TunnelSpec,
				Message: "an SSH tunnel needs a network device",
				Hint:    "use tcp://host:port as the device",
			}
		}
		if _, _, _, err := ParseTunnelSpec(c.TunnelSpec); err != nil {
			return &scerr.ConfigError{Field: "tunnel", Value: c.TunnelSpec, Message: err.Error()}
		}
	}
	return nil
}
