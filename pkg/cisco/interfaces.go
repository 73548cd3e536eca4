package cisco

import (
	"context"
	"fmt"
	"strings"

	"github.com/newtron-network/relayctl/pkg/util"
)

// rowExcludes are status words that disqualify a brief-listing row. The
// device-side filter already drops them on IOS and NX-OS; ASA filters only
// the header.
var rowExcludes = []string{"down", "unassigned", "deleted"}

// ScanInterfaces records the interfaces that are up and carry an IP address.
// The result is a snapshot; it is never refreshed during the job.
func (d *Device) ScanInterfaces(ctx context.Context) error {
	p, err := profileFor(d.Family)
	if err != nil {
		return err
	}
	out, err := d.send(ctx, p.interfacesCommand)
	if err != nil {
		return err
	}
	d.ActiveInterfaces = parseInterfaceBrief(out)
	util.WithDevice(d.Hostname).Debugf("%d active interfaces", len(d.ActiveInterfaces))
	return nil
}

// parseInterfaceBrief returns the first column of every qualifying row, in
// listing order, without duplicates. It never returns nil.
func parseInterfaceBrief(out string) []string {
	intfs := make([]string, 0)
	seen := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || hasExcludedField(fields[1:]) {
			continue
		}
		if seen[fields[0]] {
			continue
		}
		seen[fields[0]] = true
		intfs = append(intfs, fields[0])
	}
	return intfs
}

func hasExcludedField(fields []string) bool {
	for _, f := range fields {
		for _, x := range rowExcludes {
			if f == x {
				return true
			}
		}
	}
	return false
}

// ExtractRelays reads the running configuration of every active interface
// and records the relay addresses found on it, in order and with duplicates.
// Interfaces without a relay are not recorded. ScanInterfaces must have run
// first.
func (d *Device) ExtractRelays(ctx context.Context) error {
	if d.ActiveInterfaces == nil {
		return util.NewPreconditionError("extract relays", d.Hostname,
			"active interfaces are known", "run interface scan first")
	}
	p, err := profileFor(d.Family)
	if err != nil {
		return err
	}

	relays := make([]RelayInterface, 0)
	for _, intf := range d.ActiveInterfaces {
		out, err := d.send(ctx, fmt.Sprintf("show running-config interface %s", intf))
		if err != nil {
			return err
		}
		var found []string
		for _, line := range strings.Split(out, "\n") {
			if m := p.relayPattern.FindStringSubmatch(line); m != nil {
				found = append(found, m[1])
			}
		}
		if len(found) == 0 {
			continue
		}
		util.WithInterface(d.Hostname, intf).Debugf("relays: %s", strings.Join(found, ", "))
		relays = append(relays, RelayInterface{Name: intf, Relays: found})
	}
	d.RelayInterfaces = relays
	return nil
}
