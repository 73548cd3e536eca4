package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/newtron-network/relayctl/pkg/channel"
	"github.com/newtron-network/relayctl/pkg/cisco"
	"github.com/newtron-network/relayctl/pkg/cli"
	"github.com/newtron-network/relayctl/pkg/util"
	"github.com/newtron-network/relayctl/pkg/version"
)

// ============================================================================
// Session helpers
// ============================================================================

// readPassword returns the password from the flag, RELAYCTL_PASSWORD, or an
// echo-free prompt when stdin is a terminal.
func readPassword() (string, error) {
	if password != "" {
		return password, nil
	}
	if p := os.Getenv("RELAYCTL_PASSWORD"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("password required: use --password or RELAYCTL_PASSWORD")
	}
	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", userName, hostName)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

// factOverrides returns the facts supplied on the command line.
func factOverrides() cisco.Facts {
	return cisco.Facts{
		Hostname: factHostname,
		SysDescr: factSysDescr,
		Model:    factModel,
		Version:  factVersion,
	}
}

// needsDiscovery reports whether the device must be asked for any fact. The
// hostname falls back to the -H address and never forces discovery.
func needsDiscovery(o cisco.Facts) bool {
	return o.SysDescr == "" || o.Model == "" || o.Version == ""
}

// connectDevice opens an SSH session to -H, resolves the device facts and
// builds the device model. The returned close function ends the session.
// validateConnection checks the connection flags before dialing.
func validateConnection() error {
	v := &util.ValidationBuilder{}
	v.Add(hostName != "", "device required: use -H <host> flag")
	v.Add(userName != "", "user required: use -u <user> or 'relayctl settings set default_user <user>'")
	v.Add(sshPort > 0 && sshPort < 65536, fmt.Sprintf("invalid port %d", sshPort))
	v.Add(sshTimeout > 0, "timeout must be positive")
	return v.Build()
}

func connectDevice(ctx context.Context) (*cisco.Device, func(), error) {
	if err := validateConnection(); err != nil {
		return nil, nil, err
	}
	pw, err := readPassword()
	if err != nil {
		return nil, nil, err
	}

	ssh, err := channel.DialSSH(ctx, channel.SSHConfig{
		Host:             hostName,
		Port:             sshPort,
		User:             userName,
		Password:         pw,
		Timeout:          sshTimeout,
		LegacyAlgorithms: legacyCiphers,
		ClientVersion:    version.SSHClientVersion(),
	})
	if err != nil {
		return nil, nil, err
	}
	ch := channel.NewTraced(ssh, hostName)
	closeFn := func() { ssh.Close() }

	overrides := factOverrides()
	facts := cisco.Facts{Hostname: hostName}
	if needsDiscovery(overrides) {
		discovered, err := cisco.DiscoverFacts(ctx, ch)
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("discovering facts: %w", err)
		}
		facts = facts.Override(discovered)
	}
	facts = facts.Override(overrides)

	dev, err := cisco.NewDevice(ctx, ch, facts)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return dev, closeFn, nil
}

// withDevice connects, runs fn and disconnects.
func withDevice(fn func(ctx context.Context, dev *cisco.Device) error) error {
	ctx := context.Background()
	dev, closeFn, err := connectDevice(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, dev)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ============================================================================
// show
// ============================================================================

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show device details",
	Long: `Show the device model: OS family and version, boot image, platform,
build and filesystems.

On ASA in multi-context mode, image and filesystem inspection needs the admin
context; from any other context those sections are reported as not permitted.

Examples:
  relayctl -H core-sw1 show
  relayctl -H fw1 --json show`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(ctx context.Context, dev *cisco.Device) error {
			var notes []string
			if err := dev.InspectImage(ctx); err != nil {
				if !errors.Is(err, util.ErrPermissionDenied) {
					return err
				}
				notes = append(notes, err.Error())
			} else if err := dev.InspectFilesystems(ctx); err != nil {
				if !errors.Is(err, util.ErrPermissionDenied) {
					return err
				}
				notes = append(notes, err.Error())
			}

			if jsonOutput {
				return printJSON(os.Stdout, dev)
			}
			renderDevice(os.Stdout, dev)
			for _, n := range notes {
				fmt.Println(yellow("note: " + n))
			}
			return nil
		})
	},
}

// renderDevice prints the device model as a property list followed by the
// filesystem table.
func renderDevice(w io.Writer, dev *cisco.Device) {
	const width = 24
	row := func(name, value string) {
		fmt.Fprintf(w, "%s %s\n", cli.DotPad(name, width), cli.ValueOr(value, "-"))
	}

	fmt.Fprintln(w, bold(dev.Hostname))
	row("Family", dev.Family.String())
	if dev.Version != nil {
		row("Version", dev.Version.String())
	}
	row("Model", dev.Model)
	row("Platform", dev.Platform)
	row("Build", dev.Build)
	row("Boot image", dev.BootImage)
	if dev.KickstartImage != "" {
		row("Kickstart image", dev.KickstartImage)
	}
	row("Boot mode", string(dev.BootMode))
	if dev.SDWANMode != cisco.SDWANNone {
		row("SD-WAN mode", string(dev.SDWANMode))
	}

	switch dev.Family {
	case cisco.ASA:
		row("Multi-context", cli.YesNo(dev.ASA.MultiContext))
		if dev.ASA.MultiContext {
			row("Admin context", cli.YesNo(dev.ASA.AdminContext))
			row("Admin context name", dev.ASA.AdminContextName)
		}
	case cisco.NXOS:
		row("ACI mode", cli.YesNo(dev.NXOS.ACIMode))
		if dev.NXOS.VDC {
			row("VDC", fmt.Sprintf("%d (%s)", dev.NXOS.VDCID, dev.NXOS.VDCName))
			row("Default VDC", cli.YesNo(dev.NXOS.DefaultVDC))
		}
	}

	if len(dev.Filesystems) == 0 {
		return
	}
	fmt.Fprintln(w)
	t := cli.NewTableTo(w, "FILESYSTEM", "FREE", "ROLE")
	for i, fs := range dev.Filesystems {
		var roles []string
		if i == 0 {
			roles = append(roles, "boot")
		}
		if fs.Name == dev.DefaultFilesystem {
			roles = append(roles, "default")
		}
		t.Row(fs.Name, cli.FormatBytes(fs.FreeBytes), strings.Join(roles, ","))
	}
	t.Flush()
}

// ============================================================================
// interfaces / relays
// ============================================================================

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List active interfaces",
	Long: `List the interfaces that are up and carry an IP address.

Examples:
  relayctl -H core-sw1 interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(ctx context.Context, dev *cisco.Device) error {
			if err := dev.ScanInterfaces(ctx); err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(os.Stdout, dev.ActiveInterfaces)
			}
			if len(dev.ActiveInterfaces) == 0 {
				fmt.Println("No active interfaces")
				return nil
			}
			for _, name := range dev.ActiveInterfaces {
				fmt.Println(name)
			}
			return nil
		})
	},
}

var relaysCmd = &cobra.Command{
	Use:   "relays",
	Short: "Show DHCP relays per interface",
	Long: `Show the DHCP relay addresses configured on every active interface.
Interfaces without a relay are omitted.

Examples:
  relayctl -H core-sw1 relays
  relayctl -H fw1 relays --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(ctx context.Context, dev *cisco.Device) error {
			if err := dev.ScanInterfaces(ctx); err != nil {
				return err
			}
			if err := dev.ExtractRelays(ctx); err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(os.Stdout, dev.RelayInterfaces)
			}
			renderRelays(os.Stdout, dev.RelayInterfaces)
			return nil
		})
	},
}

func renderRelays(w io.Writer, relays []cisco.RelayInterface) {
	if len(relays) == 0 {
		fmt.Fprintln(w, "No DHCP relays configured")
		return
	}
	t := cli.NewTableTo(w, "INTERFACE", "RELAYS")
	for _, ri := range relays {
		t.Row(ri.Name, strings.Join(ri.Relays, ", "))
	}
	t.Flush()
}

// ============================================================================
// file
// ============================================================================

var (
	fileFS   string
	filePath string
)

var fileCmd = &cobra.Command{
	Use:   "file <name>",
	Short: "Look up a file's size",
	Long: `Look up a file in a directory listing and print its size in bytes.
Without --fs the boot image filesystem is used.

Examples:
  relayctl -H core-sw1 file cat9k_iosxe.17.06.04.SPA.bin
  relayctl -H fw1 file asa9-12-4-smp-k8.bin --fs disk0`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(ctx context.Context, dev *cisco.Device) error {
			fs := fileFS
			if fs == "" {
				if err := dev.InspectImage(ctx); err != nil {
					return err
				}
				fs = dev.BootImageFilesystem
			}
			name, size, err := dev.FileSize(ctx, fs, args[0], filePath)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(os.Stdout, map[string]interface{}{"filesystem": fs, "name": name, "size": size})
			}
			if size < 0 {
				return fmt.Errorf("%s not found on %s:%s", args[0], fs, filePath)
			}
			fmt.Printf("%s:%s %d bytes (%s)\n", fs, name, size, cli.FormatBytes(size))
			return nil
		})
	},
}

func init() {
	fileCmd.Flags().StringVar(&fileFS, "fs", "", "Filesystem (default: boot image filesystem)")
	fileCmd.Flags().StringVar(&filePath, "path", "/", "Directory path")
}
