package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	systemdDest    = "org.freedesktop.systemd1"
	systemdPath    = "/org/freedesktop/systemd1"
	unitInterface  = "org.freedesktop.systemd1.Unit"
	propsInterface = "org.freedesktop.DBus.Properties"
)

// systemdConn reads unit state from a service manager. The D-Bus
// implementation is the production one; tests inject a fake.
type systemdConn interface {
	ActiveState(ctx context.Context, unit string) (string, error)
	Close() error
}

// SystemdCheck verifies a unit's ActiveState through the system D-Bus.
type SystemdCheck struct {
	component string
	unit      string
	connect   func() (systemdConn, error)
}

func NewSystemdCheck(component, unit string) *SystemdCheck {
	return &SystemdCheck{
		component: component,
		unit:      unit,
		connect:   dialSystemBus,
	}
}

func (c *SystemdCheck) Name() string      { return fmt.Sprintf("systemd %s", c.unit) }
func (c *SystemdCheck) Component() string { return c.component }

func (c *SystemdCheck) Run(ctx context.Context) error {
	conn, err := c.connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	state, err := conn.ActiveState(ctx, c.unit)
	if err != nil {
		return err
	}
	if state != "active" {
		return fmt.Errorf("unit %s is %s", c.unit, state)
	}
	return nil
}

type dbusConn struct {
	conn *dbus.Conn
}

func dialSystemBus() (systemdConn, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &dbusConn{conn: conn}, nil
}

func (d *dbusConn) ActiveState(ctx context.Context, unit string) (string, error) {
	if !strings.HasSuffix(unit, ".service") {
		unit += ".service"
	}

	manager := d.conn.Object(systemdDest, dbus.ObjectPath(systemdPath))
	var unitPath dbus.ObjectPath
	err := manager.CallWithContext(ctx, systemdDest+".Manager.GetUnit", 0, unit).Store(&unitPath)
	if err != nil {
		return "", fmt.Errorf("failed to look up unit %s: %w", unit, err)
	}

	obj := d.conn.Object(systemdDest, unitPath)
	var state string
	err = obj.CallWithContext(ctx, propsInterface+".Get", 0, unitInterface, "ActiveState").Store(&state)
	if err != nil {
		return "", fmt.Errorf("failed to read ActiveState of %s: %w", unit, err)
	}
	return state, nil
}

func (d *dbusConn) Close() error { return d.conn.Close() }
