// Package cisco models a Cisco device (IOS, IOS-XE, NX-OS, ASA) from the
// text output of show commands sent over a command channel: OS family and
// version, boot image, file systems, active interfaces and the DHCP relay
// addresses configured on them.
package cisco

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/newtron-network/relayctl/pkg/util"
)

// OSFamily is the Cisco operating system family. It selects every parsing
// strategy and command syntax used against the device.
type OSFamily int

const (
	FamilyUnknown OSFamily = iota
	IOS
	IOSXE
	NXOS
	ASA
)

// Families lists every supported family.
var Families = []OSFamily{IOS, IOSXE, NXOS, ASA}

var familyNames = map[OSFamily]string{
	IOS:   "IOS",
	IOSXE: "IOS-XE",
	NXOS:  "NX-OS",
	ASA:   "ASA",
}

func (f OSFamily) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the family by name.
func (f OSFamily) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText parses a family name as produced by String.
func (f *OSFamily) UnmarshalText(b []byte) error {
	fam, err := ParseFamily(string(b))
	if err != nil {
		return err
	}
	*f = fam
	return nil
}

// ParseFamily parses a family name, case-insensitively.
func ParseFamily(name string) (OSFamily, error) {
	for fam, n := range familyNames {
		if strings.EqualFold(n, name) {
			return fam, nil
		}
	}
	return FamilyUnknown, &util.UnknownOSTypeError{Family: name}
}

// sysDescrXE are the system description markers of IOS-XE; they vary by
// release train and platform.
var sysDescrXE = []string{"IOSXE", "IOS-XE", "IOS XE", "LINUX_IOSD", "CAT3K_"}

// ClassifyOS determines the OS family from a system description. The tests
// run in a fixed order since IOS-XE descriptions also contain "IOS".
func ClassifyOS(sysDescr string) (OSFamily, error) {
	switch {
	case strings.Contains(sysDescr, "Adaptive Security"):
		return ASA, nil
	case strings.Contains(sysDescr, "NX-OS"):
		return NXOS, nil
	case util.ContainsAny(sysDescr, sysDescrXE...):
		return IOSXE, nil
	case strings.Contains(sysDescr, "IOS"):
		return IOS, nil
	}
	return FamilyUnknown, &util.UnrecognizedOSError{SysDescr: sysDescr}
}

// ============================================================================
// Version records
// ============================================================================

// Version is the structured firmware version of a device. The concrete type
// depends on the family; fields that could not be parsed are nil.
type Version interface {
	Family() OSFamily
	String() string
}

// ASAVersion is {maj}-{min}-{maint}[-{rebuild}], or the pre-9.10
// {maj}{min}{maint}-{rebuild} form.
type ASAVersion struct {
	Raw         string `json:"raw"`
	Major       *int   `json:"major,omitempty"`
	Minor       *int   `json:"minor,omitempty"`
	Maintenance *int   `json:"maintenance,omitempty"`
	Rebuild     *int   `json:"rebuild,omitempty"`
}

// NXOSVersion is {maj}.{min}({maint}[{rebuild}]).
type NXOSVersion struct {
	Raw         string  `json:"raw"`
	Major       *int    `json:"major,omitempty"`
	Minor       *int    `json:"minor,omitempty"`
	Maintenance *int    `json:"maintenance,omitempty"`
	Rebuild     *string `json:"rebuild,omitempty"`
}

// IOSXEVersion is {maj}.{rel}.{rebuild}[.{extra}][.{extra2}]. On 16.x and
// later the first extra is a special release tag; on 3.x the extras are the
// train and the IOSd version.
type IOSXEVersion struct {
	Raw            string  `json:"raw"`
	Major          *int    `json:"major,omitempty"`
	Release        *int    `json:"release,omitempty"`
	Rebuild        *int    `json:"rebuild,omitempty"`
	SpecialRelease *string `json:"special_release,omitempty"`
	Train          *string `json:"train,omitempty"`
	IOSd           *string `json:"iosd,omitempty"`
}

// IOSVersion is {maj}.{min}({feature}){TYPE}[{maint}].
type IOSVersion struct {
	Raw         string  `json:"raw"`
	Major       *int    `json:"major,omitempty"`
	Minor       *int    `json:"minor,omitempty"`
	Feature     *string `json:"feature,omitempty"`
	Type        *string `json:"type,omitempty"`
	Maintenance *string `json:"maintenance,omitempty"`
}

func (v *ASAVersion) Family() OSFamily   { return ASA }
func (v *NXOSVersion) Family() OSFamily  { return NXOS }
func (v *IOSXEVersion) Family() OSFamily { return IOSXE }
func (v *IOSVersion) Family() OSFamily   { return IOS }

func (v *ASAVersion) String() string   { return v.Raw }
func (v *NXOSVersion) String() string  { return v.Raw }
func (v *IOSXEVersion) String() string { return v.Raw }
func (v *IOSVersion) String() string   { return v.Raw }

var (
	asaVersionRe   = regexp.MustCompile(`(\d+)-(\d+)-(\d+)(?:-(\d+))?`)
	asaLegacyRe    = regexp.MustCompile(`(\d)(\d+)(\d)-(\d+)?`)
	asaDottedRe    = regexp.MustCompile(`(\d+)\.(\d+)\((\d+)\)(\d*)`)
	nxosVersionRe  = regexp.MustCompile(`(\d+)\.(\d+)\((\d+)(\w+)?\)(.*)`)
	iosxeVersionRe = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)\.?([a-zA-Z0-9]+)?\.?(\S+)?`)
	iosVersionRe   = regexp.MustCompile(`(\d+)\.(\d+)\(([a-zA-Z0-9]+)\)([A-Z]+)([a-z0-9]+)?`)
)

// ParseVersion parses a raw version string for the given family. A string
// that does not match leaves the numeric fields nil; only an unknown family
// is an error.
func ParseVersion(family OSFamily, raw string) (Version, error) {
	switch family {
	case ASA:
		v := &ASAVersion{Raw: raw}
		if m := matchASAVersion(raw); m != nil {
			v.Major, v.Minor, v.Maintenance = intPtr(m[1]), intPtr(m[2]), intPtr(m[3])
			v.Rebuild = intPtr(m[4])
		}
		return v, nil
	case NXOS:
		v := &NXOSVersion{Raw: raw}
		if m := nxosVersionRe.FindStringSubmatch(raw); m != nil {
			v.Major, v.Minor, v.Maintenance = intPtr(m[1]), intPtr(m[2]), intPtr(m[3])
			v.Rebuild = strPtr(m[4])
		}
		return v, nil
	case IOSXE:
		v := &IOSXEVersion{Raw: raw}
		if m := iosxeVersionRe.FindStringSubmatch(raw); m != nil {
			v.Major, v.Release, v.Rebuild = intPtr(m[1]), intPtr(m[2]), intPtr(m[3])
			if v.Major != nil {
				switch maj := *v.Major; {
				case maj >= 16:
					v.SpecialRelease = strPtr(m[4])
				case maj == 3:
					v.Train = strPtr(m[4])
					v.IOSd = strPtr(m[5])
				}
			}
		}
		return v, nil
	case IOS:
		v := &IOSVersion{Raw: raw}
		if m := iosVersionRe.FindStringSubmatch(raw); m != nil {
			v.Major, v.Minor = intPtr(m[1]), intPtr(m[2])
			v.Feature, v.Type, v.Maintenance = strPtr(m[3]), strPtr(m[4]), strPtr(m[5])
		}
		return v, nil
	}
	return nil, &util.UnknownOSTypeError{Family: family.String()}
}

// matchASAVersion returns the major, minor, maintenance and rebuild groups of
// an ASA version. The show version form 9.12(4)28 is read as 9-12-4-28; the
// legacy image form 924-5 has single-digit major and maintenance.
func matchASAVersion(raw string) []string {
	if m := asaDottedRe.FindStringSubmatch(raw); m != nil {
		return m
	}
	if m := asaVersionRe.FindStringSubmatch(raw); m != nil {
		return m
	}
	return asaLegacyRe.FindStringSubmatch(raw)
}

func intPtr(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ============================================================================
// Per-family command profiles
// ============================================================================

// profile holds the command syntax and relay keyword of one family.
type profile struct {
	interfacesCommand string
	relayPattern      *regexp.Regexp
	relayPrefix       string
	saveCommand       string
}

var profiles = map[OSFamily]profile{
	IOS: {
		interfacesCommand: "show ip int br | ex (Proto|unassig|down|Any|NVI)",
		relayPattern:      regexp.MustCompile(`ip\s+helper-address\s+(\S+)`),
		relayPrefix:       "ip helper-address ",
		saveCommand:       "copy running-config startup-config\r\r\r",
	},
	IOSXE: {
		interfacesCommand: "show ip int br | ex (Proto|unassig|down|Any|NVI)",
		relayPattern:      regexp.MustCompile(`ip\s+helper-address\s+(\S+)`),
		relayPrefix:       "ip helper-address ",
		saveCommand:       "copy running-config startup-config\r\r\r",
	},
	NXOS: {
		interfacesCommand: `show ip int br | ex "(^$|Interface|down)"`,
		relayPattern:      regexp.MustCompile(`ip\s+dhcp\s+relay\s+address\s+(\S+)`),
		relayPrefix:       "ip dhcp relay address ",
		saveCommand:       "copy running-config startup-config\r\r\r",
	},
	ASA: {
		interfacesCommand: "show int ip br | ex ^Interface|Internal",
		relayPattern:      regexp.MustCompile(`dhcprelay\s+server\s+(\S+)`),
		relayPrefix:       "dhcprelay server ",
		saveCommand:       "write memory",
	},
}

func profileFor(f OSFamily) (profile, error) {
	p, ok := profiles[f]
	if !ok {
		return profile{}, &util.UnknownOSTypeError{Family: f.String()}
	}
	return p, nil
}

// RelayCommand renders the interface-level command that adds, or with
// remove set, deletes one relay address.
func RelayCommand(f OSFamily, addr string, remove bool) (string, error) {
	p, err := profileFor(f)
	if err != nil {
		return "", err
	}
	cmd := p.relayPrefix + addr
	if remove {
		cmd = "no " + cmd
	}
	return cmd, nil
}
