// Package cmd wires up the CLI flags and dispatches to the session core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	flag "github.com/spf13/pflag"

	"simplecom/config"
	"simplecom/internal/console"
	"simplecom/internal/core"
	scerr "simplecom/internal/errors"
	"simplecom/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X simplecom/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the appropriate simplecom mode on the
// process console.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, console.Std())
}

func execute(ctx context.Context, args []string, con *console.Console) error {
	cfg := config.Defaults()
	fs := flag.NewFlagSet("simplecom", flag.ContinueOnError)
	fs.SetOutput(con.Err)

	// ── serial line ──────────────────────────────────────────────
	fs.IntVarP(&cfg.BaudRate, "baud", "b", cfg.BaudRate, "Baud rate")
	fs.IntVar(&cfg.DataBits, "data-bits", cfg.DataBits, "Data bits (5-8)")
	fs.StringVar(&cfg.Parity, "parity", cfg.Parity, "Parity: none, odd, even, mark, space")
	fs.StringVar(&cfg.StopBits, "stop-bits", cfg.StopBits, "Stop bits: 1, 1.5, 2")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Serial read timeout (bounds shutdown latency)")
	fs.DurationVarP(&cfg.ConnTimeout, "timeout", "w", cfg.ConnTimeout, "Connect timeout for tcp:// devices")

	// ── session ──────────────────────────────────────────────────
	fs.BoolVar(&cfg.ConfirmExit, "confirm-exit", cfg.ConfirmExit, "Ask before leaving on F1")
	fs.BoolVarP(&cfg.ListPorts, "list", "l", false, "List serial ports and exit")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Print the resolved settings and exit")

	var configPath string
	fs.StringVarP(&configPath, "config", "c", "", "Config file (default $"+config.ConfigEnv+" or the user config dir)")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", "", "Reach a tcp:// device via SSH [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", "", "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", false, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", false, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", false, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", "", "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(con.Err, fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return &scerr.ConfigError{Message: err.Error(), Hint: "run simplecom --help for usage"}
	}

	if showHelp {
		printUsage(con.Err, fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(con.Out, "simplecom %s\n", version)
		return nil
	}

	// ── resolve: defaults < file < environment < flags ───────────
	setOnCommandLine := changedFlags(fs)
	if err := config.Load(cfg, configPath); err != nil {
		return err
	}
	for name, value := range setOnCommandLine {
		if err := fs.Set(name, value); err != nil {
			return &scerr.ConfigError{Field: name, Value: value, Message: err.Error()}
		}
	}

	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		// A bare invocation with no device configured anywhere asks
		// for help rather than failing.
		if len(args) == 0 && missingDevice(err) {
			printUsage(con.Err, fs)
			return nil
		}
		return err
	}
	if err := cfg.ResolveTunnel(); err != nil {
		return err
	}

	if cfg.DryRun {
		return printSettings(con.Out, cfg)
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(con.Err)
	if cfg.ConfigFile != "" {
		logger.Verbose("using config file %s", cfg.ConfigFile)
	}

	mode, err := core.Build(cfg, con, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// changedFlags captures the flags the operator set, so they can be
// re-applied over the file and environment values.
func changedFlags(fs *flag.FlagSet) map[string]string {
	set := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = f.Value.String()
	})
	return set
}

func missingDevice(err error) bool {
	var ce *scerr.ConfigError
	return scerr.As(err, &ce) && ce.Field == "device" && ce.Value == nil
}

func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
	case 1:
		cfg.Device = remaining[0]
	default:
		return &scerr.ConfigError{
			Field:   "device",
			Value:   strings.Join(remaining, " "),
			Message: "only one device may be given",
		}
	}
	return nil
}

func printSettings(w io.Writer, cfg *config.Config) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if cfg.ListPorts {
		fmt.Fprintln(tw, "mode\tlist ports")
	} else {
		parity, _ := cfg.ParityMode()
		stopBits, _ := cfg.StopBitsMode()
		fmt.Fprintf(tw, "device\t%s\n", cfg.Device)
		fmt.Fprintf(tw, "line\t%d baud, %s\n", cfg.BaudRate, config.Framing(cfg.DataBits, parity, stopBits))
		fmt.Fprintf(tw, "poll interval\t%s\n", cfg.PollInterval)
		fmt.Fprintf(tw, "confirm exit\t%t\n", cfg.ConfirmExit)
		if cfg.TunnelEnabled {
			fmt.Fprintf(tw, "tunnel\t%s@%s:%d\n", cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort)
		}
	}
	configFile := cfg.ConfigFile
	if configFile == "" {
		configFile = "none"
	}
	fmt.Fprintf(tw, "config file\t%s\n", configFile)
	return tw.Flush()
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `SimpleCom – Serial Terminal v%s

Bridges this console to a serial device.  Keys are sent to the device
as typed; device output is shown as received.

Usage:
  simplecom [options] <device>

Keys:
  F1    Leave the session
  F8    Pause / resume (data in both directions is discarded)

Options:
`, version)
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprint(w, `
Examples:
  simplecom COM3                              Open COM3 at 115200 8N1
  simplecom -b 9600 --parity even /dev/ttyS0  Custom line settings
  simplecom tcp://ser2net.lab:4001            Network serial server
  simplecom -T ops@bastion tcp://10.0.0.5:4001
  simplecom --list -v                         List ports with USB details
`)
}
