// Package version carries the build identity of relayctl.
package version

import "strings"

// Version, GitCommit, and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/newtron-network/relayctl/pkg/version.Version=v1.0.0 \
//	  -X github.com/newtron-network/relayctl/pkg/version.GitCommit=abc1234 \
//	  -X github.com/newtron-network/relayctl/pkg/version.BuildDate=2026-01-01T00:00:00Z"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a formatted version string for display.
func Info() string {
	return Version + " (" + GitCommit + ") built " + BuildDate
}

// SSHClientVersion returns the identification string relayctl announces to
// devices, e.g. "SSH-2.0-relayctl_v1.0.0". Spaces are not allowed in it.
func SSHClientVersion() string {
	return "SSH-2.0-relayctl_" + strings.ReplaceAll(Version, " ", "_")
}
