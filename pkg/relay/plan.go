package relay

import (
	"fmt"
	"strings"
	"time"

	"github.com/newtron-network/relayctl/pkg/cisco"
	"github.com/newtron-network/relayctl/pkg/util"
)

// ChangeType represents the type of relay change.
type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeRemove ChangeType = "remove"
)

// Change is one relay address added to or removed from an interface.
type Change struct {
	Interface string     `json:"interface"`
	Address   string     `json:"address"`
	Type      ChangeType `json:"type"`
}

// InterfacePlan is the reconciliation of one interface: the relays found on
// it, the relays to remove and to add, and the commands that do so.
type InterfacePlan struct {
	Interface  string   `json:"interface"`
	Configured []string `json:"configured"`
	Remove     []string `json:"remove"`
	Add        []string `json:"add"`
	Commands   []string `json:"commands"`
}

// Plan is the reconciliation of every relaying interface of a device.
type Plan struct {
	Device     string          `json:"device"`
	Family     cisco.OSFamily  `json:"family"`
	Timestamp  time.Time       `json:"timestamp"`
	Interfaces []InterfacePlan `json:"interfaces"`
}

// ComputePlan computes the relay changes of every interface. Each configured
// occurrence of an address in neither the authorized nor the excluded list
// is removed, so duplicates yield duplicate removals. Every authorized
// address is added, present or not; re-adding a relay is a no-op on the
// device. Excluded addresses are never removed and never added.
func ComputePlan(device string, family cisco.OSFamily, relays []cisco.RelayInterface, lists *Lists) (*Plan, error) {
	keep := util.StringSet(lists.Authorized)
	for a := range util.StringSet(lists.Excluded) {
		keep[a] = struct{}{}
	}

	p := &Plan{
		Device:     device,
		Family:     family,
		Timestamp:  time.Now(),
		Interfaces: make([]InterfacePlan, 0, len(relays)),
	}
	for _, ri := range relays {
		ifp := InterfacePlan{
			Interface:  ri.Name,
			Configured: ri.Relays,
			Remove:     make([]string, 0),
			Add:        append([]string{}, lists.Authorized...),
			Commands:   []string{"interface " + ri.Name},
		}
		for _, addr := range ri.Relays {
			if _, ok := keep[addr]; !ok {
				ifp.Remove = append(ifp.Remove, addr)
			}
		}

		for _, addr := range ifp.Remove {
			cmd, err := cisco.RelayCommand(family, addr, true)
			if err != nil {
				return nil, err
			}
			ifp.Commands = append(ifp.Commands, cmd)
		}
		for _, addr := range ifp.Add {
			cmd, err := cisco.RelayCommand(family, addr, false)
			if err != nil {
				return nil, err
			}
			ifp.Commands = append(ifp.Commands, cmd)
		}
		p.Interfaces = append(p.Interfaces, ifp)
	}
	return p, nil
}

// IsEmpty returns true if no interface carries a relay.
func (p *Plan) IsEmpty() bool {
	return len(p.Interfaces) == 0
}

// Removals returns the number of relay removals across all interfaces.
func (p *Plan) Removals() int {
	n := 0
	for _, ifp := range p.Interfaces {
		n += len(ifp.Remove)
	}
	return n
}

// Commands returns the interface commands of the plan in issue order.
func (p *Plan) Commands() []string {
	var cmds []string
	for _, ifp := range p.Interfaces {
		cmds = append(cmds, ifp.Commands...)
	}
	return cmds
}

// Changes flattens the plan into individual relay changes.
func (p *Plan) Changes() []Change {
	var changes []Change
	for _, ifp := range p.Interfaces {
		for _, a := range ifp.Remove {
			changes = append(changes, Change{Interface: ifp.Interface, Address: a, Type: ChangeRemove})
		}
		for _, a := range ifp.Add {
			changes = append(changes, Change{Interface: ifp.Interface, Address: a, Type: ChangeAdd})
		}
	}
	return changes
}

// String returns a human-readable representation of the changes.
func (p *Plan) String() string {
	if p.IsEmpty() {
		return "No relays configured"
	}

	var sb strings.Builder
	for _, ifp := range p.Interfaces {
		sb.WriteString(fmt.Sprintf("  %s (configured: %s)\n", ifp.Interface, strings.Join(ifp.Configured, ", ")))
		for _, a := range ifp.Remove {
			sb.WriteString(fmt.Sprintf("    [DEL] %s\n", a))
		}
		for _, a := range ifp.Add {
			sb.WriteString(fmt.Sprintf("    [ADD] %s\n", a))
		}
	}
	return sb.String()
}

// Preview returns a formatted preview of the changes.
func (p *Plan) Preview() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Device: %s (%s)\n", p.Device, p.Family))
	sb.WriteString(fmt.Sprintf("Changes:\n%s", p.String()))
	return sb.String()
}
