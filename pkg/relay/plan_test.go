package relay

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/newtron-network/relayctl/pkg/cisco"
)

func TestComputePlan_Scenario(t *testing.T) {
	relays := []cisco.RelayInterface{{Name: "Vlan10", Relays: []string{"10.1.1.1", "10.2.2.2"}}}
	lists := &Lists{Authorized: []string{"10.2.2.2", "10.3.3.3"}}

	p, err := ComputePlan("sw1", cisco.IOS, relays, lists)
	if err != nil {
		t.Fatalf("ComputePlan() error: %v", err)
	}
	want := []string{
		"interface Vlan10",
		"no ip helper-address 10.1.1.1",
		"ip helper-address 10.2.2.2",
		"ip helper-address 10.3.3.3",
	}
	if got := p.Commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("Commands() = %q, want %q", got, want)
	}
	if p.Removals() != 1 {
		t.Errorf("Removals() = %d, want 1", p.Removals())
	}
}

func TestComputePlan_Table(t *testing.T) {
	tests := []struct {
		name       string
		configured []string
		authorized []string
		excluded   []string
		wantRemove []string
		wantAdd    []string
	}{
		{
			name:       "all authorized",
			configured: []string{"10.2.2.2"},
			authorized: []string{"10.2.2.2"},
			wantRemove: []string{},
			wantAdd:    []string{"10.2.2.2"},
		},
		{
			name:       "excluded kept but not added",
			configured: []string{"10.9.9.9", "10.1.1.1"},
			authorized: []string{"10.2.2.2"},
			excluded:   []string{"10.9.9.9"},
			wantRemove: []string{"10.1.1.1"},
			wantAdd:    []string{"10.2.2.2"},
		},
		{
			name:       "duplicates removed per occurrence",
			configured: []string{"10.1.1.1", "10.2.2.2", "10.1.1.1"},
			authorized: []string{"10.2.2.2"},
			wantRemove: []string{"10.1.1.1", "10.1.1.1"},
			wantAdd:    []string{"10.2.2.2"},
		},
		{
			name:       "address both authorized and excluded",
			configured: []string{"10.2.2.2"},
			authorized: []string{"10.2.2.2"},
			excluded:   []string{"10.2.2.2"},
			wantRemove: []string{},
			wantAdd:    []string{"10.2.2.2"},
		},
		{
			name:       "empty authorized list",
			configured: []string{"10.1.1.1"},
			wantRemove: []string{"10.1.1.1"},
			wantAdd:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relays := []cisco.RelayInterface{{Name: "Vlan10", Relays: tt.configured}}
			p, err := ComputePlan("sw1", cisco.IOSXE, relays, &Lists{Authorized: tt.authorized, Excluded: tt.excluded})
			if err != nil {
				t.Fatalf("ComputePlan() error: %v", err)
			}
			ifp := p.Interfaces[0]
			if !reflect.DeepEqual(ifp.Remove, tt.wantRemove) {
				t.Errorf("Remove = %q, want %q", ifp.Remove, tt.wantRemove)
			}
			if !reflect.DeepEqual(ifp.Add, tt.wantAdd) {
				t.Errorf("Add = %q, want %q", ifp.Add, tt.wantAdd)
			}
			if len(ifp.Commands) != 1+len(tt.wantRemove)+len(tt.wantAdd) {
				t.Errorf("Commands = %q", ifp.Commands)
			}
		})
	}
}

// TestComputePlan_SetLaw checks on random inputs that the removals are
// exactly the configured occurrences outside authorized and excluded.
func TestComputePlan_SetLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pool := make([]string, 12)
	for i := range pool {
		pool[i] = fmt.Sprintf("10.0.0.%d", i+1)
	}
	pick := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = pool[rng.Intn(len(pool))]
		}
		return out
	}

	for i := 0; i < 200; i++ {
		c, a, e := pick(rng.Intn(6)+1), pick(rng.Intn(4)), pick(rng.Intn(3))
		p, err := ComputePlan("sw1", cisco.NXOS, []cisco.RelayInterface{{Name: "Vlan1", Relays: c}}, &Lists{Authorized: a, Excluded: e})
		if err != nil {
			t.Fatalf("ComputePlan() error: %v", err)
		}

		in := func(s []string, x string) bool {
			for _, v := range s {
				if v == x {
					return true
				}
			}
			return false
		}
		want := []string{}
		for _, x := range c {
			if !in(a, x) && !in(e, x) {
				want = append(want, x)
			}
		}
		ifp := p.Interfaces[0]
		if !reflect.DeepEqual(ifp.Remove, want) {
			t.Fatalf("C=%q A=%q E=%q: Remove = %q, want %q", c, a, e, ifp.Remove, want)
		}
		for _, x := range ifp.Add {
			if in(e, x) && !in(a, x) {
				t.Fatalf("excluded-only address %s added", x)
			}
		}
	}
}

func TestComputePlan_UnknownFamily(t *testing.T) {
	relays := []cisco.RelayInterface{{Name: "Vlan10", Relays: []string{"10.1.1.1"}}}
	if _, err := ComputePlan("sw1", cisco.FamilyUnknown, relays, &Lists{}); err == nil {
		t.Fatal("ComputePlan() should fail for an unknown family")
	}
}

func TestPlan_Changes(t *testing.T) {
	relays := []cisco.RelayInterface{
		{Name: "inside", Relays: []string{"10.1.1.1"}},
		{Name: "dmz", Relays: []string{"10.2.2.2"}},
	}
	p, err := ComputePlan("fw1", cisco.ASA, relays, &Lists{Authorized: []string{"10.2.2.2"}})
	if err != nil {
		t.Fatalf("ComputePlan() error: %v", err)
	}

	want := []Change{
		{Interface: "inside", Address: "10.1.1.1", Type: ChangeRemove},
		{Interface: "inside", Address: "10.2.2.2", Type: ChangeAdd},
		{Interface: "dmz", Address: "10.2.2.2", Type: ChangeAdd},
	}
	if got := p.Changes(); !reflect.DeepEqual(got, want) {
		t.Errorf("Changes() = %+v, want %+v", got, want)
	}
	if p.Interfaces[0].Commands[1] != "no dhcprelay server 10.1.1.1" {
		t.Errorf("Commands = %q", p.Interfaces[0].Commands)
	}
	if p.IsEmpty() {
		t.Error("IsEmpty() should be false")
	}
	if p.Preview() == "" || p.String() == "" {
		t.Error("Preview() should render")
	}

	empty := &Plan{Device: "fw1"}
	if !empty.IsEmpty() || empty.String() != "No relays configured" {
		t.Errorf("empty plan String() = %q", empty.String())
	}
}
