package cisco

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/newtron-network/relayctl/pkg/util"
)

// Boot image patterns. They run against show version output with all spaces
// removed, e.g. `Systemimagefileis"flash:/c2960x-universalk9-mz.152-7.E2.bin"`.
var (
	// NX-OS: "system image file is: bootflash:///n7000-s2-dk9.8.4.2.bin"
	nxosImageFSRe     = regexp.MustCompile(`:([^:\n]*):`)
	nxosImageRe       = regexp.MustCompile(`(?:system|NXOS)[^\n]*/([^/\n]+)`)
	nxosKickstartRe   = regexp.MustCompile(`kickstart[^\n]*/([^/\n]+)`)
	nxosACIImageFSRe  = regexp.MustCompile(`/([^/\n]*)/`)
	nxosACIPlatformRe = regexp.MustCompile(`(aci-[a-zA-Z0-9]+)(?:-|_|\.)`)

	// IOS, IOS-XE and ASA: `"<fs>:/<image>"`. Some transports escape the
	// closing quote with a backslash.
	imageFSRe = regexp.MustCompile(`"([^":]+):`)
	imageRe   = regexp.MustCompile(`"[^":]+:/?([^"\\]+)`)

	bundlePlatformRe = regexp.MustCompile(`([a-zA-Z0-9]+(_lite|_iosxe)?)(?:-|_|\.)`)

	// INSTALL mode manifest metadata.
	pkgBuildRe    = regexp.MustCompile(`#\s+pkginfo:\s+Build:\s+(\S+)`)
	pkgPlatformRe = regexp.MustCompile(`#\s+pkginfo:\s+Platform:\s+([a-zA-Z0-9_-]+)`)
	rpBaseBuildRe = regexp.MustCompile(`\.(\d+\.\d+\.\d+[a-zA-Z]?)\.`)
	rpBasePlatRe  = regexp.MustCompile(`\s([a-zA-Z0-9_]+)-`)

	sdwanOperatingRe = regexp.MustCompile(`operating.*:\s+(.*)`)
)

// platformAliases maps legacy platform codes to the code that replaced them.
// Entries ending in "*" rewrite a prefix; others match exactly.
var platformAliases = []struct{ from, to string }{
	{"c8300*", "c8000"},
	{"c8500*", "c8000"},
	{"ng3k", "cat3k_caa"},
}

// sdwanPlatforms are the platform prefixes that can run SD-WAN images.
var sdwanPlatforms = []string{
	"ir1101", "isr1", "isr4", "isrv", "asr1", "c1000v", "c1100",
	"c8000", "c8200", "c8300", "c8500",
}

// CanonicalPlatform lowercases a platform code and replaces legacy codes
// that have been merged into a newer one. It is idempotent.
func CanonicalPlatform(p string) string {
	p = strings.ToLower(p)
	for _, a := range platformAliases {
		if prefix, ok := strings.CutSuffix(a.from, "*"); ok {
			if rest, found := strings.CutPrefix(p, prefix); found {
				return a.to + rest
			}
			continue
		}
		if p == a.from {
			return a.to
		}
	}
	return p
}

func (d *Device) imageCommand() string {
	if d.Family == NXOS && d.NXOS.ACIMode {
		return "show version | grep image"
	}
	return "show version | include image"
}

// InspectImage determines the running boot image, the file system hosting
// it and the platform. On IOS-XE it also determines the boot mode, the build
// of INSTALL-mode devices and the SD-WAN mode. On a multi-context ASA it must
// be called from the admin context.
func (d *Device) InspectImage(ctx context.Context) error {
	cmd := d.imageCommand()
	var raw string
	err := d.withSystemContext(ctx, "inspect image", func() error {
		var err error
		raw, err = d.send(ctx, cmd)
		return err
	})
	if err != nil {
		return err
	}
	out := strings.ReplaceAll(raw, " ", "")

	switch {
	case d.Family == NXOS && d.NXOS.ACIMode:
		err = d.parseACIImage(cmd, out)
	case d.Family == NXOS:
		err = d.parseNXOSImage(cmd, out)
	default:
		err = d.parseImage(ctx, cmd, out)
	}
	if err != nil {
		return err
	}

	if d.Family == IOSXE {
		if err := d.detectSDWAN(ctx); err != nil {
			return err
		}
	}

	util.WithDevice(d.Hostname).Debugf("image %s:%s platform %s mode %s",
		d.BootImageFilesystem, d.BootImage, d.Platform, d.BootMode)
	return nil
}

func (d *Device) parseNXOSImage(cmd, out string) error {
	m := nxosImageFSRe.FindStringSubmatch(out)
	if m == nil {
		return util.NewParseError(cmd, "boot image file system")
	}
	d.BootImageFilesystem = m[1]

	m = nxosImageRe.FindStringSubmatch(out)
	if m == nil {
		return util.NewParseError(cmd, "system image")
	}
	d.BootImage = m[1]

	// Releases before 7.0(3) boot a separate kickstart image.
	if strings.Contains(out, "kickstart") {
		if m := nxosKickstartRe.FindStringSubmatch(out); m != nil {
			d.KickstartImage = m[1]
		}
	}

	m = bundlePlatformRe.FindStringSubmatch(d.BootImage)
	if m == nil {
		return util.NewParseError(cmd, "platform")
	}
	d.Platform = CanonicalPlatform(m[1])
	return nil
}

// parseACIImage handles NX-OS in ACI mode, which boots a single image that
// show version reports as the kickstart image.
func (d *Device) parseACIImage(cmd, out string) error {
	m := nxosACIImageFSRe.FindStringSubmatch(out)
	if m == nil {
		return util.NewParseError(cmd, "boot image file system")
	}
	d.BootImageFilesystem = m[1]

	m = nxosKickstartRe.FindStringSubmatch(out)
	if m == nil {
		return util.NewParseError(cmd, "kickstart image")
	}
	d.KickstartImage = m[1]
	d.BootImage = m[1]

	m = nxosACIPlatformRe.FindStringSubmatch(d.BootImage)
	if m == nil {
		return util.NewParseError(cmd, "platform")
	}
	d.Platform = CanonicalPlatform(m[1])
	return nil
}

func (d *Device) parseImage(ctx context.Context, cmd, out string) error {
	m := imageFSRe.FindStringSubmatch(out)
	if m == nil {
		return util.NewParseError(cmd, "boot image file system")
	}
	d.BootImageFilesystem = m[1]

	m = imageRe.FindStringSubmatch(out)
	if m == nil {
		return util.NewParseError(cmd, "boot image")
	}
	d.BootImage = m[1]

	if d.Family == ASA {
		d.Platform = "asa"
		return nil
	}

	if strings.HasSuffix(d.BootImage, ".conf") {
		d.BootMode = BootInstall
		return d.readManifest(ctx)
	}

	d.BootMode = BootBundle
	m = bundlePlatformRe.FindStringSubmatch(d.BootImage)
	if m == nil {
		return util.NewParseError(cmd, "platform")
	}
	d.Platform = CanonicalPlatform(m[1])
	return nil
}

// readManifest extracts the build and platform of an INSTALL-mode device
// from the package manifest it booted. Some releases omit the pkginfo
// header; the rp_base package listed in packages.conf is used instead.
func (d *Device) readManifest(ctx context.Context) error {
	cmd := fmt.Sprintf("more %s:/%s | include Platform:|Build:", d.BootImageFilesystem, d.BootImage)
	out, err := d.send(ctx, cmd)
	if err != nil {
		return err
	}
	if m := pkgBuildRe.FindStringSubmatch(out); m != nil {
		d.Build = m[1]
		if m := pkgPlatformRe.FindStringSubmatch(out); m != nil {
			d.Platform = CanonicalPlatform(m[1])
		}
		return nil
	}

	cmd = fmt.Sprintf(`more %s:/packages.conf | include rp_base.*\.pkg`, d.BootImageFilesystem)
	out, err = d.send(ctx, cmd)
	if err != nil {
		return err
	}
	m := rpBaseBuildRe.FindStringSubmatch(out)
	if m == nil {
		return &util.UnresolvedBuildError{Image: d.BootImageFilesystem + ":/" + d.BootImage}
	}
	d.Build = m[1]
	if m := rpBasePlatRe.FindStringSubmatch(out); m != nil {
		d.Platform = CanonicalPlatform(m[1])
	}
	return nil
}

// detectSDWAN sets the SD-WAN mode. Universal (ucmk9) images start out as
// unknown; the operating mode line, when present, decides between
// autonomous and controller-managed.
func (d *Device) detectSDWAN(ctx context.Context) error {
	if d.Platform != "" && strings.HasPrefix(d.BootImage, d.Platform+"-ucmk9.") {
		d.SDWANMode = SDWANUnknown
	}
	if !util.HasAnyPrefix(d.Platform, sdwanPlatforms...) {
		return nil
	}

	out, err := d.send(ctx, "show version | include operating")
	if err != nil {
		return err
	}
	m := sdwanOperatingRe.FindStringSubmatch(out)
	if m == nil {
		return nil
	}
	switch {
	case strings.Contains(m[1], "Autonomous"):
		d.SDWANMode = SDWANAutonomous
	case strings.Contains(m[1], "Controller-Managed"):
		d.SDWANMode = SDWANManaged
	}
	return nil
}
