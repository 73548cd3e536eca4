package cisco

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// NX-OS:   "  37867424    Jul 24 10:47:52 2019  nxos.9.3.8.bin"
	nxosDirRe = regexp.MustCompile(`^\s*(\d+)\s+.*\s(\S+)$`)
	// Others:  "   12  -rw-   37867424  Jul 24 2019 10:47:52 +00:00  c2960x.bin"
	// Directories (drwx) do not match.
	dirRe = regexp.MustCompile(`^\s*\d+\s+-\S{3}\s+(\d+).*\s(\S+)$`)
)

// FileSize looks up a file in a directory of a file system and returns its
// name and size in bytes. A missing file yields "", -1 and no error.
func (d *Device) FileSize(ctx context.Context, fs, name, path string) (string, int64, error) {
	if path == "" {
		path = "/"
	}
	cmd := fmt.Sprintf("dir %s:%s", fs, path)
	if d.Family != ASA {
		// ASA does not accept output filters on dir.
		cmd += " | include " + name
	}
	out, err := d.send(ctx, cmd)
	if err != nil {
		return "", -1, err
	}

	re := dirRe
	if d.Family == NXOS {
		re = nxosDirRe
	}
	for _, line := range strings.Split(out, "\n") {
		m := re.FindStringSubmatch(strings.TrimRight(line, " \t"))
		if m == nil || m[2] != name || strings.HasSuffix(m[2], "/") {
			continue
		}
		size, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return "", -1, fmt.Errorf("size of %s: %w", name, err)
		}
		return m[2], size, nil
	}
	return "", -1, nil
}
