package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// AppName prefixes the console title and error reports.
	AppName = "SimpleCom"

	DefaultBaudRate = 115200
	DefaultDataBits = 8
	DefaultParity   = "none"
	DefaultStopBits = "1"

	// DefaultPollInterval is the serial read timeout.  It bounds how
	// long a cancelled device read keeps running during shutdown.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultConnTimeout is the TCP/SSH connection timeout for network
	// devices.
	DefaultConnTimeout = 30 * time.Second

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22
)

// Defaults returns a Config populated with every default value.
func Defaults() *Config {
	return &Config{
		BaudRate:     DefaultBaudRate,
		DataBits:     DefaultDataBits,
		Parity:       DefaultParity,
		StopBits:     DefaultStopBits,
		PollInterval: DefaultPollInterval,
		ConnTimeout:  DefaultConnTimeout,
		ConfirmExit:  true,
	}
}
