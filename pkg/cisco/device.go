package cisco

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/newtron-network/relayctl/pkg/channel"
	"github.com/newtron-network/relayctl/pkg/util"
)

// BootMode is how an IOS-XE device boots.
type BootMode string

const (
	BootModeUnset BootMode = ""
	// BootInstall boots from a package manifest (packages.conf).
	BootInstall BootMode = "INSTALL"
	// BootBundle boots a monolithic image file.
	BootBundle BootMode = "BUNDLE"
)

// SDWANMode is the SD-WAN operating mode of an IOS-XE router. The zero value
// means the device does not run SD-WAN.
type SDWANMode string

const (
	SDWANNone       SDWANMode = ""
	SDWANUnknown    SDWANMode = "unknown"
	SDWANAutonomous SDWANMode = "autonomous"
	SDWANManaged    SDWANMode = "managed"
)

// Filesystem is one device file system and its free space.
type Filesystem struct {
	Name      string `json:"name"`
	FreeBytes int64  `json:"free_bytes"`
}

// RelayInterface is an interface and the relay addresses configured on it,
// in configuration order, duplicates included.
type RelayInterface struct {
	Name   string   `json:"name"`
	Relays []string `json:"relays"`
}

// ASAInfo holds ASA hardware and security context state.
type ASAInfo struct {
	LegacyBootFormat bool   `json:"legacy_boot_format"` // lfbff images
	MultiCore        bool   `json:"multi_core"`         // smp images
	MultiContext     bool   `json:"multi_context"`
	AdminContext     bool   `json:"admin_context"`
	AdminContextName string `json:"admin_context_name,omitempty"`
}

// NXOSInfo holds NX-OS mode and virtual device context state.
type NXOSInfo struct {
	ACIMode    bool   `json:"aci_mode"`
	VDC        bool   `json:"vdc"`
	VDCID      int    `json:"vdc_id,omitempty"`
	VDCName    string `json:"vdc_name,omitempty"`
	DefaultVDC bool   `json:"default_vdc"`
}

// Facts identify a device before any command is sent. They normally come
// from an inventory; DiscoverFacts derives them from the device itself.
type Facts struct {
	Hostname string `json:"hostname"`
	SysDescr string `json:"sys_descr"`
	Model    string `json:"model"`
	Version  string `json:"version"`
}

// Device is the model of one Cisco device for the duration of a job. The
// inspection methods fill it in place over its command channel; the channel
// is owned by the device and must not be shared with another job.
type Device struct {
	Hostname string   `json:"hostname"`
	Model    string   `json:"model"`
	SysDescr string   `json:"sys_descr"`
	Family   OSFamily `json:"family"`
	Version  Version  `json:"version"`

	ASA  ASAInfo  `json:"asa"`
	NXOS NXOSInfo `json:"nxos"`

	// Set by InspectImage.
	Platform            string    `json:"platform,omitempty"`
	BootImage           string    `json:"boot_image,omitempty"`
	BootImageFilesystem string    `json:"boot_image_filesystem,omitempty"`
	KickstartImage      string    `json:"kickstart_image,omitempty"`
	BootMode            BootMode  `json:"boot_mode,omitempty"`
	Build               string    `json:"build,omitempty"`
	SDWANMode           SDWANMode `json:"sdwan_mode,omitempty"`

	// Set by InspectFilesystems. Filesystems[0] is the file system hosting
	// the boot image; the rest are every synonym found, from index 1.
	DefaultFilesystem string       `json:"default_filesystem,omitempty"`
	Filesystems       []Filesystem `json:"filesystems,omitempty"`

	// ActiveInterfaces is nil until ScanInterfaces has run.
	ActiveInterfaces []string         `json:"active_interfaces"`
	RelayInterfaces  []RelayInterface `json:"relay_interfaces"`

	InConfigMode bool `json:"in_config_mode"`

	ch channel.Channel
}

// ASA models whose images use the legacy free boot file format, and those
// that run multi-core (smp) images.
var (
	asaLFBFFModels = []string{"5506", "5508", "5516"}
	asaSMPModels   = []string{"5512", "5515", "5525", "5545", "5555", "5585"}
)

// NX-OS model prefixes of chassis that support VDCs.
var nxosVDCModels = []string{"N7K", "N77"}

var (
	asaAdminContextRe = regexp.MustCompile(`\*(\w+)`)
	nxosVDCRe         = regexp.MustCompile(`Current\s+vdc\s+is\s+(\d+)\s+-\s+(\S+)`)
)

// NewDevice classifies the device and parses its version, then probes the
// family-specific state that every later operation depends on: ASA security
// contexts and NX-OS VDCs. An unrecognized system description is fatal.
func NewDevice(ctx context.Context, ch channel.Channel, facts Facts) (*Device, error) {
	family, err := ClassifyOS(facts.SysDescr)
	if err != nil {
		return nil, err
	}
	version, err := ParseVersion(family, facts.Version)
	if err != nil {
		return nil, err
	}

	d := &Device{
		Hostname: facts.Hostname,
		Model:    facts.Model,
		SysDescr: facts.SysDescr,
		Family:   family,
		Version:  version,
		ch:       ch,
	}

	switch family {
	case ASA:
		if err := d.probeASA(ctx); err != nil {
			return nil, err
		}
	case NXOS:
		d.NXOS.ACIMode = strings.Contains(facts.SysDescr, "aci")
		if util.HasAnyPrefix(facts.Model, nxosVDCModels...) {
			if err := d.probeVDC(ctx); err != nil {
				return nil, err
			}
		}
	}

	util.WithDevice(d.Hostname).Debugf("modeled as %s version %s", d.Family, d.Version)
	return d, nil
}

func (d *Device) probeASA(ctx context.Context) error {
	d.ASA.LegacyBootFormat = util.ContainsAny(d.Model, asaLFBFFModels...)
	d.ASA.MultiCore = util.ContainsAny(d.Model, asaSMPModels...)

	out, err := d.send(ctx, "show version | include Cisco Adaptive")
	if err != nil {
		return err
	}
	if !strings.Contains(out, "<context>") {
		return nil
	}
	d.ASA.MultiContext = true

	// The current context is listed with a leading asterisk only when it is
	// the admin context.
	out, err = d.send(ctx, `show context | include ^\*`)
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) == "" {
		return nil
	}
	m := asaAdminContextRe.FindStringSubmatch(out)
	if m == nil {
		return util.NewParseError(`show context | include ^\*`, "admin context name")
	}
	d.ASA.AdminContext = true
	d.ASA.AdminContextName = m[1]
	return nil
}

func (d *Device) probeVDC(ctx context.Context) error {
	d.NXOS.VDC = true
	out, err := d.send(ctx, "show vdc current-vdc")
	if err != nil {
		return err
	}
	if m := nxosVDCRe.FindStringSubmatch(out); m != nil {
		d.NXOS.VDCID, _ = strconv.Atoi(m[1])
		d.NXOS.VDCName = m[2]
		d.NXOS.DefaultVDC = d.NXOS.VDCID == 1
	}
	return nil
}

// Channel returns the command channel the device was built on.
func (d *Device) Channel() channel.Channel {
	return d.ch
}

// Send issues a literal command on the device channel.
func (d *Device) Send(ctx context.Context, command string) (string, error) {
	return d.send(ctx, command)
}

func (d *Device) send(ctx context.Context, command string) (string, error) {
	out, err := d.ch.Send(ctx, command)
	if err != nil {
		return "", fmt.Errorf("%s: %q: %w", d.Hostname, command, err)
	}
	return out, nil
}

// requireSystemContext fails when the device is a multi-context ASA logged in
// to a context other than admin, from which the system context is unreachable.
func (d *Device) requireSystemContext(operation string) error {
	if d.Family == ASA && d.ASA.MultiContext && !d.ASA.AdminContext {
		return &util.PermissionError{Operation: operation, Context: d.Hostname}
	}
	return nil
}

// withSystemContext runs fn in the ASA system context. From a multi-context
// admin context it switches to the system context and restores the admin
// context on every return path. From any other multi-context context it
// fails without sending a command. Other devices run fn unchanged.
func (d *Device) withSystemContext(ctx context.Context, operation string, fn func() error) (err error) {
	if err := d.requireSystemContext(operation); err != nil {
		return err
	}
	if d.Family != ASA || !d.ASA.MultiContext {
		return fn()
	}

	if _, err := d.send(ctx, "changeto system"); err != nil {
		return err
	}
	defer func() {
		restore := "changeto context " + d.ASA.AdminContextName
		if _, rerr := d.send(context.WithoutCancel(ctx), restore); rerr != nil && err == nil {
			err = fmt.Errorf("restoring admin context: %w", rerr)
		}
	}()
	return fn()
}
