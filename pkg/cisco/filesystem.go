package cisco

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/newtron-network/relayctl/pkg/util"
)

var (
	nxosFreeRe = regexp.MustCompile(`(\d+)\sbytes free`)

	// show file system rows:
	//	*  122185728    63942656      flash     rw   flash:#
	// The default file system carries the leading asterisk. A trailing "#"
	// marks a bootable file system and is not part of the name.
	defaultFSRowRe = regexp.MustCompile(`\*\s*(-|\d+)\s*(-|\d+)\s*(\w+)\s*(\w+)\s*([^#\s]+)`)
	fsRowRe        = regexp.MustCompile(`\*?\s*(-|\d+)\s*(-|\d+)\s*(\w+)\s*(\w+)\s*([^#\s]+)`)
)

// InspectFilesystems records the free space of the file system hosting the
// boot image as index 0, followed by every file system whose name contains
// the default or the boot file system name. Stacked and redundant units
// report their file systems under such names (flash-2, slavebootflash).
// InspectImage must have run first.
func (d *Device) InspectFilesystems(ctx context.Context) error {
	if err := d.requireSystemContext("inspect filesystems"); err != nil {
		return err
	}
	if d.BootImageFilesystem == "" {
		return util.NewPreconditionError("inspect filesystems", d.Hostname,
			"boot image file system is known", "run image inspection first")
	}

	if d.Family == NXOS {
		return d.inspectNXOSFilesystem(ctx)
	}

	var out string
	err := d.withSystemContext(ctx, "inspect filesystems", func() error {
		var err error
		out, err = d.send(ctx, "show file system")
		return err
	})
	if err != nil {
		return err
	}
	return d.parseFileSystems(out)
}

// inspectNXOSFilesystem reads the free space of the boot file system from a
// directory listing; NX-OS has no file system summary.
func (d *Device) inspectNXOSFilesystem(ctx context.Context) error {
	cmd := fmt.Sprintf("dir %s: | include free", d.BootImageFilesystem)
	out, err := d.send(ctx, cmd)
	if err != nil {
		return err
	}
	m := nxosFreeRe.FindStringSubmatch(out)
	if m == nil {
		return util.NewParseError(cmd, "bytes free")
	}
	free, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return util.NewParseError(cmd, "bytes free")
	}
	d.DefaultFilesystem = d.BootImageFilesystem
	d.Filesystems = []Filesystem{{Name: d.BootImageFilesystem, FreeBytes: free}}
	return nil
}

func (d *Device) parseFileSystems(out string) error {
	const cmd = "show file system"

	m := defaultFSRowRe.FindStringSubmatch(out)
	if m == nil {
		return util.NewParseError(cmd, "default file system")
	}
	d.DefaultFilesystem = strings.ReplaceAll(m[5], ":", "")

	boot := -1
	var related []Filesystem
	for _, line := range strings.Split(out, "\n") {
		m := fsRowRe.FindStringSubmatch(line)
		if m == nil || m[2] == "-" {
			continue
		}
		if !strings.Contains(m[5], d.DefaultFilesystem) && !strings.Contains(m[5], d.BootImageFilesystem) {
			continue
		}
		free, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue
		}
		fs := Filesystem{Name: strings.ReplaceAll(m[5], ":", ""), FreeBytes: free}
		related = append(related, fs)
		if fs.Name == d.BootImageFilesystem && boot < 0 {
			boot = len(related) - 1
		}
	}
	if boot < 0 {
		return util.NewParseError(cmd, "free space of "+d.BootImageFilesystem)
	}

	d.Filesystems = append([]Filesystem{related[boot]}, related...)
	return nil
}

// FilesystemAt returns the file system at index i.
func (d *Device) FilesystemAt(i int) (Filesystem, bool) {
	if i < 0 || i >= len(d.Filesystems) {
		return Filesystem{}, false
	}
	return d.Filesystems[i], true
}
