package cisco

import (
	"context"

	"github.com/newtron-network/relayctl/pkg/util"
)

// EnterConfig enters global configuration mode. It does nothing when the
// device is already in configuration mode.
func (d *Device) EnterConfig(ctx context.Context) error {
	if d.InConfigMode {
		return nil
	}
	if _, err := d.send(ctx, "enable"); err != nil {
		return err
	}
	if _, err := d.send(ctx, "configure terminal"); err != nil {
		return err
	}
	d.InConfigMode = true
	return nil
}

// ExitConfig leaves configuration mode, sending "end" only when the device
// is in it, and with commit set saves the running configuration.
func (d *Device) ExitConfig(ctx context.Context, commit bool) error {
	if d.InConfigMode {
		if _, err := d.send(ctx, "end"); err != nil {
			return err
		}
		d.InConfigMode = false
	}
	if !commit {
		return nil
	}
	p, err := profileFor(d.Family)
	if err != nil {
		return err
	}
	// The extra returns answer the confirmation prompts some releases show
	// when overwriting a startup configuration saved by another version.
	if _, err := d.send(ctx, p.saveCommand); err != nil {
		return err
	}
	util.WithDevice(d.Hostname).Info("running configuration saved")
	return nil
}
