package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/relayctl/pkg/audit"
	"github.com/newtron-network/relayctl/pkg/cisco"
	"github.com/newtron-network/relayctl/pkg/cli"
	"github.com/newtron-network/relayctl/pkg/devlock"
	"github.com/newtron-network/relayctl/pkg/liststore"
	"github.com/newtron-network/relayctl/pkg/relay"
	"github.com/newtron-network/relayctl/pkg/util"
)

var enforceCmd = &cobra.Command{
	Use:   "enforce",
	Short: "Reconcile DHCP relays against the authorized list",
	Long: `Reconcile the DHCP relays of every active interface against one row of
the authorized relay list.

On each interface carrying at least one relay, relays in neither the
authorized nor the excluded list are removed and every authorized relay is
added. Interfaces without relays are never touched, and a device with no
relay at all completes without reading the list.

Without -x the commands are only previewed. With -x and a Redis address the
device is locked for the duration of the run.

Examples:
  relayctl -H core-sw1 enforce -k Site-001
  relayctl -H core-sw1 enforce -k Site-001 -x
  relayctl -H core-sw1 enforce -k Site-001 -xs --redis 10.0.0.5:6379`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		store, closeStore, err := openListStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		return withDevice(func(ctx context.Context, dev *cisco.Device) error {
			if executeMode && redisAddr != "" {
				release, err := lockDevice(ctx, dev.Hostname)
				if err != nil {
					return err
				}
				defer release()
			}

			start := time.Now()
			e := &relay.Enforcer{
				Device:  dev,
				Store:   store,
				List:    listName,
				Key:     listKey,
				Execute: executeMode,
				Commit:  saveMode,
			}
			res, runErr := e.Run(ctx)
			logEnforce(dev, res, runErr, time.Since(start))

			if res != nil {
				if jsonOutput {
					if err := printJSON(os.Stdout, res); err != nil {
						return err
					}
				} else {
					renderResult(os.Stdout, res)
				}
			}
			if runErr != nil {
				return fmt.Errorf("execution failed: %w", runErr)
			}
			if !jsonOutput {
				printOutcome(os.Stdout, res)
			}
			return nil
		})
	},
}

func init() {
	enforceCmd.Flags().StringVarP(&listKey, "list-key", "k", "", "Authorized list row key")
	enforceCmd.Flags().DurationVar(&lockTTL, "lock-ttl", devlock.DefaultTTL, "Device lock expiry")
}

// openListStore returns the Redis list store when an address is configured,
// otherwise the YAML list file.
func openListStore(ctx context.Context) (liststore.Store, func(), error) {
	if redisAddr != "" {
		s := liststore.NewRedisStore(redisAddr, userSettings.ListDB)
		if err := s.Connect(ctx); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("connecting to list store %s: %w", redisAddr, err)
		}
		return s, func() { s.Close() }, nil
	}
	if listFile == "" {
		return nil, nil, fmt.Errorf("list store required: use --list-file <file> or --redis <addr>")
	}
	m, err := liststore.LoadFile(listFile)
	if err != nil {
		return nil, nil, err
	}
	return m, func() {}, nil
}

// lockDevice takes the device's job lock and returns its release function.
func lockDevice(ctx context.Context, device string) (func(), error) {
	locker := devlock.NewLocker(redisAddr, userSettings.GetLockDB())
	locker.TTL = lockTTL

	lock, err := locker.Acquire(ctx, device, devlock.NewHolder())
	if err != nil {
		locker.Close()
		if errors.Is(err, util.ErrDeviceLocked) {
			return nil, err
		}
		return nil, fmt.Errorf("locking device: %w", err)
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			util.WithDevice(device).Warnf("releasing lock: %v", err)
		}
		locker.Close()
	}, nil
}

// logEnforce records the run in the audit log.
func logEnforce(dev *cisco.Device, res *relay.Result, runErr error, d time.Duration) {
	event := audit.NewEvent(currentUser(), dev.Hostname, audit.OpEnforce).
		WithList(listName, listKey).
		WithExecuteMode(executeMode, saveMode).
		WithDuration(d)
	event.Family = dev.Family.String()
	if res != nil {
		event.WithPlan(res.Plan)
		event.Committed = res.Committed
	}
	if runErr != nil {
		event.WithError(runErr)
	} else {
		event.WithSuccess()
	}
	if err := audit.Log(event); err != nil {
		util.Warnf("audit: %v", err)
	}
}

// currentUser names the operator in audit events: the SSH user, qualified
// by the local account when it differs.
func currentUser() string {
	local := os.Getenv("USER")
	if local == "" || local == userName {
		return userName
	}
	return local + " as " + userName
}

// renderResult prints the reconciliation plan: per interface, the relays
// found and the ones removed and added.
func renderResult(w io.Writer, res *relay.Result) {
	if res.NoRelays || res.Plan == nil {
		fmt.Fprintf(w, "%s: no DHCP relays configured, nothing to do\n", res.Device)
		return
	}

	fmt.Fprintf(w, "Device: %s (%s)  list key: %s\n\n", res.Device, res.Plan.Family, res.Lists.Key)
	t := cli.NewTableTo(w, "INTERFACE", "CONFIGURED", "CHANGE", "ADDRESS")
	for _, ifp := range res.Plan.Interfaces {
		configured := fmt.Sprintf("%d", len(ifp.Configured))
		first := true
		emit := func(change, addr string) {
			name, conf := "", ""
			if first {
				name, conf = ifp.Interface, configured
				first = false
			}
			t.Row(name, conf, change, addr)
		}
		for _, a := range ifp.Remove {
			emit(red("[DEL]"), a)
		}
		for _, a := range ifp.Add {
			emit(green("[ADD]"), a)
		}
		if first {
			t.Row(ifp.Interface, configured, "", "")
		}
	}
	t.Flush()

	if verbose {
		fmt.Fprintln(w, "\nCommands:")
		for _, c := range res.Plan.Commands() {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
}

func printOutcome(w io.Writer, res *relay.Result) {
	switch {
	case res.NoRelays:
	case res.DryRun:
		fmt.Fprintln(w, "\n"+yellow("DRY-RUN: No changes applied. Use -x to execute."))
	case res.Committed:
		fmt.Fprintln(w, "\n"+green("Changes applied and saved."))
	default:
		fmt.Fprintln(w, "\n"+green("Changes applied successfully.")+" Use -s to save the configuration.")
	}
}
