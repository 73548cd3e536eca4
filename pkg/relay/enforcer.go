package relay

import (
	"context"
	"fmt"

	"github.com/newtron-network/relayctl/pkg/cisco"
	"github.com/newtron-network/relayctl/pkg/liststore"
	"github.com/newtron-network/relayctl/pkg/util"
)

// Enforcer runs one reconciliation job against one device.
type Enforcer struct {
	Device *cisco.Device
	Store  liststore.Store
	List   string // defaults to DefaultListName
	Key    string

	// Execute sends the plan to the device; otherwise the run is a dry run
	// that only records and logs the commands.
	Execute bool
	// Commit saves the running configuration after an executed plan.
	Commit bool
}

// Result is the outcome of a reconciliation job.
type Result struct {
	Device    string `json:"device"`
	Lists     *Lists `json:"lists,omitempty"`
	Plan      *Plan  `json:"plan,omitempty"`
	NoRelays  bool   `json:"no_relays"`
	DryRun    bool   `json:"dry_run"`
	Committed bool   `json:"committed"`
}

// Run scans the active interfaces, extracts their relays and reconciles them
// against the authorized list. A device with no relay at all completes
// without reading the list or entering configuration mode. Any failure
// aborts the whole run; interfaces already changed stay changed.
func (e *Enforcer) Run(ctx context.Context) (*Result, error) {
	d := e.Device
	log := util.WithDevice(d.Hostname)
	res := &Result{Device: d.Hostname, DryRun: !e.Execute}

	log.Info("getting active interfaces")
	if err := d.ScanInterfaces(ctx); err != nil {
		return nil, err
	}
	log.Info("searching for DHCP relays on interfaces")
	if err := d.ExtractRelays(ctx); err != nil {
		return nil, err
	}
	if len(d.RelayInterfaces) == 0 {
		log.Info("no DHCP relays found")
		res.NoRelays = true
		return res, nil
	}

	lists, err := LoadLists(ctx, e.Store, e.List, e.Key)
	if err != nil {
		return nil, err
	}
	res.Lists = lists

	plan, err := ComputePlan(d.Hostname, d.Family, d.RelayInterfaces, lists)
	if err != nil {
		return nil, err
	}
	res.Plan = plan

	if err := e.apply(ctx, plan); err != nil {
		return res, err
	}
	res.Committed = e.Execute && e.Commit
	return res, nil
}

// apply issues the plan's commands inside configuration mode, or in a dry
// run logs them without sending anything.
func (e *Enforcer) apply(ctx context.Context, plan *Plan) error {
	d := e.Device

	if e.Execute {
		if err := d.EnterConfig(ctx); err != nil {
			return err
		}
	}

	for _, ifp := range plan.Interfaces {
		log := util.WithInterface(d.Hostname, ifp.Interface)
		log.Info("reconciling relays")
		for _, a := range ifp.Remove {
			log.Infof("removing %s", a)
		}
		for _, a := range ifp.Add {
			log.Infof("adding %s", a)
		}

		for _, cmd := range ifp.Commands {
			if !e.Execute {
				log.Debugf("[dry-run] %s", cmd)
				continue
			}
			if _, err := d.Send(ctx, cmd); err != nil {
				return fmt.Errorf("reconciling %s: %w", ifp.Interface, err)
			}
		}
	}

	if e.Execute {
		return d.ExitConfig(ctx, e.Commit)
	}
	return nil
}
