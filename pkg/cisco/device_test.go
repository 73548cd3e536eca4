package cisco

import (
	"context"
	"errors"
	"testing"

	"github.com/newtron-network/relayctl/internal/testutil"
	"github.com/newtron-network/relayctl/pkg/util"
)

const (
	asaSysDescr   = "Cisco Adaptive Security Appliance Version 9.12(4)28"
	nxosSysDescr  = "Cisco NX-OS(tm) n7000, Software (n7000-s2-dk9), Version 8.4(2)"
	iosxeSysDescr = "Cisco IOS Software [Fuji], Catalyst L3 Switch Software (CAT9K_IOSXE), Version 16.9.3a"
	iosSysDescr   = "Cisco IOS Software, C2960X Software (C2960X-UNIVERSALK9-M), Version 15.2(7)E2"
)

// newTestDevice builds a device of the given family on a scripted channel
// without running the construction probes.
func newTestDevice(family OSFamily, responses map[string]string) (*Device, *testutil.ScriptedChannel) {
	ch := testutil.NewScriptedChannel(responses)
	v, _ := ParseVersion(family, "")
	return &Device{Hostname: "dev1", Family: family, Version: v, ch: ch}, ch
}

func TestNewDevice_ASA(t *testing.T) {
	tests := []struct {
		name         string
		model        string
		responses    map[string]string
		multiContext bool
		admin        bool
		adminName    string
		lfbff, smp   bool
		wantSent     int
	}{
		{
			name:  "single context",
			model: "ASA5516",
			responses: map[string]string{
				"show version | include Cisco Adaptive": "Cisco Adaptive Security Appliance Software Version 9.12(4)28",
			},
			lfbff:    true,
			wantSent: 1,
		},
		{
			name:  "admin context",
			model: "ASA5555",
			responses: map[string]string{
				"show version | include Cisco Adaptive": "Cisco Adaptive Security Appliance Software Version 9.12(4)28 <context>",
				`show context | include ^\*`:            "*admin            default              disk0:/admin.cfg",
			},
			multiContext: true,
			admin:        true,
			adminName:    "admin",
			smp:          true,
			wantSent:     2,
		},
		{
			name:  "tenant context",
			model: "ASA5585",
			responses: map[string]string{
				"show version | include Cisco Adaptive": "Cisco Adaptive Security Appliance Software Version 9.12(4)28 <context>",
			},
			multiContext: true,
			smp:          true,
			wantSent:     2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := testutil.NewScriptedChannel(tt.responses)
			d, err := NewDevice(context.Background(), ch, Facts{
				Hostname: "fw1", SysDescr: asaSysDescr, Model: tt.model, Version: "9-12-4-28",
			})
			if err != nil {
				t.Fatalf("NewDevice() error: %v", err)
			}
			if d.Family != ASA {
				t.Errorf("Family = %s, want ASA", d.Family)
			}
			if d.ASA.MultiContext != tt.multiContext || d.ASA.AdminContext != tt.admin || d.ASA.AdminContextName != tt.adminName {
				t.Errorf("ASA = %+v", d.ASA)
			}
			if d.ASA.LegacyBootFormat != tt.lfbff || d.ASA.MultiCore != tt.smp {
				t.Errorf("hardware flags = lfbff %v smp %v", d.ASA.LegacyBootFormat, d.ASA.MultiCore)
			}
			if len(ch.Sent) != tt.wantSent {
				t.Errorf("sent %d commands, want %d: %q", len(ch.Sent), tt.wantSent, ch.Sent)
			}
			v := d.Version.(*ASAVersion)
			if v.Major == nil || *v.Major != 9 || v.Rebuild == nil || *v.Rebuild != 28 {
				t.Errorf("Version = %+v", v)
			}
		})
	}
}

func TestNewDevice_NXOSVDC(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		output     string
		wantVDC    bool
		wantID     int
		wantName   string
		defaultVDC bool
		wantSent   int
	}{
		{"default vdc", "N7K-C7010", "Current vdc is 1 - core1", true, 1, "core1", true, 1},
		{"user vdc", "N77-C7710", "Current vdc is 3 - agg3", true, 3, "agg3", false, 1},
		{"no vdc support", "N9K-C93180YC-EX", "", false, 0, "", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := testutil.NewScriptedChannel(map[string]string{"show vdc current-vdc": tt.output})
			d, err := NewDevice(context.Background(), ch, Facts{
				Hostname: "n7k", SysDescr: nxosSysDescr, Model: tt.model, Version: "8.4(2)",
			})
			if err != nil {
				t.Fatalf("NewDevice() error: %v", err)
			}
			n := d.NXOS
			if n.VDC != tt.wantVDC || n.VDCID != tt.wantID || n.VDCName != tt.wantName || n.DefaultVDC != tt.defaultVDC {
				t.Errorf("NXOS = %+v", n)
			}
			if len(ch.Sent) != tt.wantSent {
				t.Errorf("sent %q", ch.Sent)
			}
		})
	}
}

func TestNewDevice_NXOSACI(t *testing.T) {
	ch := testutil.NewScriptedChannel(nil)
	d, err := NewDevice(context.Background(), ch, Facts{
		SysDescr: "Cisco NX-OS(tm) aci, Software (aci-n9000-system), Version 14.2(7f)",
		Model:    "N9K-C9336PQ",
		Version:  "14.2(7f)",
	})
	if err != nil {
		t.Fatalf("NewDevice() error: %v", err)
	}
	if !d.NXOS.ACIMode {
		t.Error("ACIMode should be set")
	}
	if d.imageCommand() != "show version | grep image" {
		t.Errorf("imageCommand() = %q", d.imageCommand())
	}
}

func TestNewDevice_IOSSendsNothing(t *testing.T) {
	ch := testutil.NewScriptedChannel(nil)
	d, err := NewDevice(context.Background(), ch, Facts{Hostname: "sw1", SysDescr: iosSysDescr, Version: "15.2(7)E2"})
	if err != nil {
		t.Fatalf("NewDevice() error: %v", err)
	}
	if d.Family != IOS {
		t.Errorf("Family = %s, want IOS", d.Family)
	}
	if len(ch.Sent) != 0 {
		t.Errorf("sent %q, want nothing", ch.Sent)
	}
	if d.ActiveInterfaces != nil {
		t.Error("ActiveInterfaces should be nil before a scan")
	}
}

func TestNewDevice_Unrecognized(t *testing.T) {
	ch := testutil.NewScriptedChannel(nil)
	_, err := NewDevice(context.Background(), ch, Facts{SysDescr: "Arista Networks EOS version 4.28.3M"})
	if !errors.Is(err, util.ErrUnrecognizedOS) {
		t.Fatalf("NewDevice() error = %v, want ErrUnrecognizedOS", err)
	}
	if len(ch.Sent) != 0 {
		t.Errorf("sent %q, want nothing", ch.Sent)
	}
}

func TestNewDevice_ChannelError(t *testing.T) {
	ch := testutil.NewScriptedChannel(nil)
	ch.Errors["show version | include Cisco Adaptive"] = util.ErrNotConnected
	_, err := NewDevice(context.Background(), ch, Facts{SysDescr: asaSysDescr, Version: "9-12-4-28"})
	if !errors.Is(err, util.ErrNotConnected) {
		t.Fatalf("NewDevice() error = %v, want ErrNotConnected", err)
	}
}
