package core

import (
	"simplecom/config"
	"simplecom/internal/console"
	"simplecom/internal/device"
	"simplecom/internal/metrics"
	"simplecom/internal/transport"
	"simplecom/util"
)

// Build constructs the appropriate Mode from a validated configuration.
// This is the single dispatch point between the CLI and the session
// machinery.
func Build(cfg *config.Config, con *console.Console, logger *util.Logger) (Mode, error) {
	if cfg.ListPorts {
		return &ListMode{
			Detailed: cfg.Verbose > 0,
			Out:      con.Out,
			Logger:   logger,
		}, nil
	}
	return buildBridge(cfg, con, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildBridge(cfg *config.Config, con *console.Console, logger *util.Logger) (Mode, error) {
	spec, err := config.ParseDeviceSpec(cfg.Device)
	if err != nil {
		return nil, err
	}
	opener, err := buildOpener(cfg, spec, logger)
	if err != nil {
		return nil, err
	}

	return &BridgeMode{
		App:     config.AppName,
		Port:    spec.Name,
		Opener:  opener,
		Console: con,
		Confirm: buildConfirmer(cfg, con),
		Metrics: metrics.New(),
		Logger:  logger,
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildOpener creates the device backend for spec.
func buildOpener(cfg *config.Config, spec config.DeviceSpec, logger *util.Logger) (device.Opener, error) {
	if spec.Network {
		return &device.NetOpener{
			Name:    spec.Name,
			Address: spec.Address,
			Dialer:  buildDialer(cfg, logger),
		}, nil
	}

	parity, err := cfg.ParityMode()
	if err != nil {
		return nil, err
	}
	stopBits, err := cfg.StopBitsMode()
	if err != nil {
		return nil, err
	}
	logger.Verbose("%s at %d baud, %s", spec.Name, cfg.BaudRate, config.Framing(cfg.DataBits, parity, stopBits))

	return &device.SerialOpener{
		Name:         spec.Name,
		BaudRate:     cfg.BaudRate,
		DataBits:     cfg.DataBits,
		Parity:       parity,
		StopBits:     stopBits,
		PollInterval: cfg.PollInterval,
	}, nil
}

// buildDialer creates the right transport.Dialer for a network device.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&transport.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.ConnTimeout,
		}, logger)
	}
	return &transport.TCPDialer{Timeout: cfg.ConnTimeout}
}

// buildConfirmer asks before leaving only when someone can answer.
func buildConfirmer(cfg *config.Config, con *console.Console) console.Confirmer {
	if cfg.ConfirmExit && con.Interactive() {
		return &console.Prompt{Out: con.Out}
	}
	return console.AutoConfirm{}
}
