// Relayctl - Cisco DHCP relay inspection and reconciliation
//
// A CLI tool for keeping the DHCP relay addresses of Cisco IOS, IOS-XE,
// NX-OS and ASA devices in line with an authorized list:
//   - Device inspection (OS family, version, boot image, filesystems)
//   - Relay discovery on every active interface
//   - Dry-run by default (preview changes, require -x to execute)
//   - Audit logging of every reconciliation
//
// The device is selected with -H; commands are verbs on it:
//
//	relayctl -H <host> [-u user] <verb> [args] [-x [-s]]
//
// Examples:
//
//	relayctl -H core-sw1 show                        # Device details
//	relayctl -H core-sw1 relays                      # Relays per interface
//	relayctl -H core-sw1 enforce -k Site-001         # Preview reconciliation
//	relayctl -H core-sw1 enforce -k Site-001 -xs     # Reconcile and save
//	relayctl lists show Site-001                     # Authorized list entry
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/relayctl/pkg/audit"
	"github.com/newtron-network/relayctl/pkg/cli"
	"github.com/newtron-network/relayctl/pkg/settings"
	"github.com/newtron-network/relayctl/pkg/util"
	"github.com/newtron-network/relayctl/pkg/version"
)

var (
	// Device selection and session flags
	hostName      string // -H, --host
	sshPort       int
	userName      string // -u, --user
	password      string
	sshTimeout    time.Duration
	legacyCiphers bool

	// Fact overrides
	factHostname string
	factSysDescr string
	factModel    string
	factVersion  string

	// Global option flags
	verbose    bool
	logJSON    bool
	jsonOutput bool

	// Write flags
	executeMode bool
	saveMode    bool

	// List flags
	listKey   string
	listName  string
	listFile  string
	redisAddr string
	lockTTL   time.Duration

	// Global state
	userSettings *settings.Settings
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "relayctl",
	Short:             "Cisco DHCP relay inspection and reconciliation",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Relayctl inspects Cisco IOS, IOS-XE, NX-OS and ASA devices and reconciles
the DHCP relay addresses of their interfaces against an authorized list.

Write commands preview changes by default; use -x to execute.

  relayctl -H <host> <verb> [args] [-x]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load user settings
		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		util.ConfigureCLI(verbose, logJSON)

		if isSettingsOrHelp(cmd) {
			return nil
		}

		if saveMode && !executeMode {
			return fmt.Errorf("--save (-s) requires --execute (-x): use -xs to execute and save")
		}

		// Apply defaults from settings
		if userName == "" {
			userName = userSettings.DefaultUser
		}
		if listName == "" {
			listName = userSettings.GetListName()
		}
		if listFile == "" {
			listFile = userSettings.ListFile
		}
		if redisAddr == "" {
			redisAddr = userSettings.RedisAddr
		}

		auditLogger, err := audit.NewFileLogger(userSettings.GetAuditLog(), audit.DefaultRotation)
		if err != nil {
			util.Warnf("Could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&hostName, "host", "H", "", "Device address or name")
	pf.IntVar(&sshPort, "port", 22, "SSH port")
	pf.StringVarP(&userName, "user", "u", "", "SSH user (default from settings)")
	pf.StringVar(&password, "password", "", "SSH password (prompted when absent; also RELAYCTL_PASSWORD)")
	pf.DurationVar(&sshTimeout, "timeout", 30*time.Second, "SSH dial and handshake timeout")
	pf.BoolVar(&legacyCiphers, "legacy-ciphers", false, "Allow SHA-1 key exchanges and CBC ciphers for old images")

	pf.StringVar(&factHostname, "hostname", "", "Override the discovered hostname")
	pf.StringVar(&factSysDescr, "sysdescr", "", "Override the discovered system description")
	pf.StringVar(&factModel, "model", "", "Override the discovered model")
	pf.StringVar(&factVersion, "os-version", "", "Override the discovered OS version")

	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	pf.BoolVar(&logJSON, "log-json", false, "Log in JSON format")

	pf.StringVar(&listName, "list-name", "", "Authorized relay list name (default \"DHCP Relays\")")
	pf.StringVar(&listFile, "list-file", "", "YAML list file")
	pf.StringVar(&redisAddr, "redis", "", "Redis address for the shared list store and device locks")

	rootCmd.AddGroup(
		&cobra.Group{ID: "device", Title: "Device Operations:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{showCmd, interfacesCmd, relaysCmd, fileCmd, enforceCmd} {
		cmd.GroupID = "device"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{listsCmd, settingsCmd, auditCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}

	for _, cmd := range []*cobra.Command{showCmd, interfacesCmd, relaysCmd, fileCmd, enforceCmd, listsCmd, auditCmd} {
		addOutputFlags(cmd)
	}
	addWriteFlags(enforceCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("relayctl dev build (use 'make build' for version info)")
		} else {
			fmt.Printf("relayctl %s\n", version.Info())
		}
	},
}

// isSettingsOrHelp returns true for commands that need no device, list or
// audit setup.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "settings":
			return true
		}
	}
	return false
}

// addWriteFlags registers -x/-s on a command that mutates device state.
func addWriteFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&executeMode, "execute", "x", false, "Execute changes (default is dry-run)")
	cmd.Flags().BoolVarP(&saveMode, "save", "s", false, "Save config after changes (requires -x)")
}

// addOutputFlags registers --json on a command that produces structured output.
func addOutputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if cmd.HasSubCommands() {
		flags = cmd.PersistentFlags()
	}
	flags.BoolVar(&jsonOutput, "json", false, "JSON output")
}

// Color helpers, delegating to pkg/cli
func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
func bold(s string) string   { return cli.Bold(s) }
