package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/relayctl/pkg/audit"
	"github.com/newtron-network/relayctl/pkg/cli"
	"github.com/newtron-network/relayctl/pkg/relay"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View audit logs",
	Long: `View the audit log of reconciliation runs.

Every enforce run is logged, dry run or not, with:
  - Timestamp and operator
  - Device and list key
  - Relay changes and the commands issued
  - Success/failure status

Examples:
  relayctl audit list --device core-sw1
  relayctl audit list --last 24h
  relayctl audit list --key Site-001 --failures`,
}

var (
	auditDevice    string
	auditUser      string
	auditKey       string
	auditInterface string
	auditLast      string
	auditLimit     int
	auditFailures  bool
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{
			Device:      auditDevice,
			User:        auditUser,
			ListKey:     auditKey,
			Interface:   auditInterface,
			Limit:       auditLimit,
			FailureOnly: auditFailures,
		}

		if auditLast != "" {
			d, err := parseSince(auditLast)
			if err != nil {
				return err
			}
			filter.StartTime = time.Now().Add(-d)
		}

		events, err := audit.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}

		if jsonOutput {
			return printJSON(os.Stdout, events)
		}
		if len(events) == 0 {
			fmt.Println("No audit events found")
			return nil
		}
		renderEvents(os.Stdout, events)
		return nil
	},
}

// parseSince accepts Go durations plus a day suffix, e.g. "7d".
func parseSince(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		var n int
		if _, err := fmt.Sscanf(days, "%d", &n); err == nil && n > 0 && fmt.Sprint(n) == days {
			return time.Duration(n) * 24 * time.Hour, nil
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid duration: %s", s)
	}
	return d, nil
}

func eventStatus(e *audit.Event) string {
	switch {
	case !e.Success:
		return red("failed")
	case e.DryRun:
		return yellow("dry-run")
	case e.Committed:
		return green("saved")
	default:
		return green("ok")
	}
}

func renderEvents(w io.Writer, events []*audit.Event) {
	t := cli.NewTableTo(w, "TIMESTAMP", "USER", "DEVICE", "KEY", "REMOVED", "ADDED", "STATUS")
	for _, e := range events {
		removed, added := 0, 0
		for _, c := range e.Changes {
			if c.Type == relay.ChangeRemove {
				removed++
			} else {
				added++
			}
		}
		t.Row(
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.User,
			e.Device,
			e.ListKey,
			fmt.Sprint(removed),
			fmt.Sprint(added),
			eventStatus(e),
		)
	}
	t.Flush()
}

func init() {
	auditListCmd.Flags().StringVar(&auditDevice, "device", "", "Filter by device")
	auditListCmd.Flags().StringVar(&auditUser, "user", "", "Filter by user")
	auditListCmd.Flags().StringVar(&auditKey, "key", "", "Filter by list key")
	auditListCmd.Flags().StringVar(&auditInterface, "interface", "", "Filter by changed interface")
	auditListCmd.Flags().StringVar(&auditLast, "last", "", "Show events from last duration (e.g., 24h, 7d)")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum events to show")
	auditListCmd.Flags().BoolVar(&auditFailures, "failures", false, "Show only failed operations")

	auditCmd.AddCommand(auditListCmd)
}
