package cisco

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/newtron-network/relayctl/pkg/channel"
	"github.com/newtron-network/relayctl/pkg/util"
)

var (
	hostnameRe      = regexp.MustCompile(`(?m)^hostname\s+(\S+)`)
	nxosVersionLine = regexp.MustCompile(`(?m)^\s*(?:NXOS|NX-OS|system):\s+version\s+(\S+)`)
	ciscoVersionRe  = regexp.MustCompile(`(?m)^Cisco[^\n]*[Vv]ersion\s+([^\s,]+)`)
	modelNumberRe   = regexp.MustCompile(`(?m)^Model [Nn]umber\s*:\s*(\S+)`)
	hardwareRe      = regexp.MustCompile(`(?m)^Hardware:\s+([^,\s]+)`)
	chassisModelRe  = regexp.MustCompile(`(?m)^[ \t]*[Cc]isco\s+(\S+)\s.*(?:processor|[Cc]hassis)`)
)

// Override returns f with every non-empty field of o applied over it.
func (f Facts) Override(o Facts) Facts {
	if o.Hostname != "" {
		f.Hostname = o.Hostname
	}
	if o.SysDescr != "" {
		f.SysDescr = o.SysDescr
	}
	if o.Model != "" {
		f.Model = o.Model
	}
	if o.Version != "" {
		f.Version = o.Version
	}
	return f
}

// DiscoverFacts derives the device facts from show version and the
// configured hostname, for devices with no inventory record.
func DiscoverFacts(ctx context.Context, ch channel.Channel) (Facts, error) {
	const versionCmd = "show version"
	out, err := ch.Send(ctx, versionCmd)
	if err != nil {
		return Facts{}, fmt.Errorf("%s: %w", versionCmd, err)
	}
	facts, err := parseShowVersion(out)
	if err != nil {
		return Facts{}, err
	}

	const hostnameCmd = "show running-config | include ^hostname"
	out, err = ch.Send(ctx, hostnameCmd)
	if err != nil {
		return Facts{}, fmt.Errorf("%s: %w", hostnameCmd, err)
	}
	if m := hostnameRe.FindStringSubmatch(out); m != nil {
		facts.Hostname = m[1]
	}

	util.Debugf("discovered %s: %q model %q version %q", facts.Hostname, facts.SysDescr, facts.Model, facts.Version)
	return facts, nil
}

func parseShowVersion(out string) (Facts, error) {
	var f Facts
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Cisco") {
			f.SysDescr = line
			break
		}
	}
	if f.SysDescr == "" {
		return Facts{}, util.NewParseError("show version", "system description")
	}

	if m := nxosVersionLine.FindStringSubmatch(out); m != nil {
		f.Version = m[1]
	} else if m := ciscoVersionRe.FindStringSubmatch(out); m != nil {
		f.Version = m[1]
	}

	for _, re := range []*regexp.Regexp{modelNumberRe, hardwareRe, chassisModelRe} {
		if m := re.FindStringSubmatch(out); m != nil {
			f.Model = m[1]
			break
		}
	}
	return f, nil
}
