package core

import (
	"context"
	"fmt"
	"io"

	"simplecom/internal/device"
	"simplecom/util"
)

// ListMode prints the serial ports present on the system, one per line.
type ListMode struct {
	Detailed bool // include USB identification
	Out      io.Writer
	Logger   *util.Logger

	// List defaults to device.ListPorts.  Override in tests.
	List func(detailed bool) ([]device.PortInfo, error)
}

// Run enumerates and prints the ports.
func (m *ListMode) Run(ctx context.Context) error {
	list := m.List
	if list == nil {
		list = device.ListPorts
	}

	ports, err := list(m.Detailed)
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		m.Logger.Info("no serial ports found")
		return nil
	}
	for _, p := range ports {
		if _, err := fmt.Fprintln(m.Out, p); err != nil {
			return err
		}
	}
	return nil
}
