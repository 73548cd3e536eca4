package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/relayctl/pkg/liststore"
	"github.com/newtron-network/relayctl/pkg/relay"
)

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Inspect the authorized relay list",
	Long: `Inspect the authorized relay list in the configured list store: the
Redis store when --redis (or redis_addr) is set, the YAML list file otherwise.

Examples:
  relayctl lists keys --list-file /etc/relayctl/lists.yaml
  relayctl lists show Site-001
  relayctl lists import /etc/relayctl/lists.yaml --redis 10.0.0.5:6379`,
}

var listsShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Show the authorized and excluded relays of a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, closeStore, err := openListStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		l, err := relay.LoadLists(ctx, store, listName, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, l)
		}
		fmt.Printf("%s %s\n", bold("Key:"), l.Key)
		fmt.Printf("%s %s\n", bold("Authorized:"), joinOrNone(l.Authorized))
		fmt.Printf("%s %s\n", bold("Excluded:"), joinOrNone(l.Excluded))
		return nil
	},
}

var listsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the keys of the authorized relay list",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, closeStore, err := openListStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		var keys []string
		switch s := store.(type) {
		case *liststore.RedisStore:
			if keys, err = s.ListKeys(ctx, listName); err != nil {
				return fmt.Errorf("listing keys: %w", err)
			}
		case *liststore.Memory:
			keys = s.Column(listName, relay.KeyColumn)
		}
		sort.Strings(keys)

		if jsonOutput {
			return printJSON(os.Stdout, keys)
		}
		if len(keys) == 0 {
			fmt.Printf("No keys in list %q\n", listName)
			return nil
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	},
}

var listsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a YAML list file into the Redis list store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if redisAddr == "" {
			return fmt.Errorf("import requires a Redis list store: use --redis <addr>")
		}
		ctx := context.Background()

		m, err := liststore.LoadFile(args[0])
		if err != nil {
			return err
		}
		s := liststore.NewRedisStore(redisAddr, userSettings.ListDB)
		defer s.Close()
		if err := s.Connect(ctx); err != nil {
			return fmt.Errorf("connecting to list store %s: %w", redisAddr, err)
		}

		n := 0
		for list, rows := range m.Lists {
			for _, row := range rows {
				if err := s.PutRow(ctx, list, relay.KeyColumn, row); err != nil {
					return fmt.Errorf("list %q: %w", list, err)
				}
				n++
			}
		}
		fmt.Printf("Imported %d rows into %s\n", n, redisAddr)
		return nil
	},
}

func joinOrNone(s []string) string {
	if len(s) == 0 {
		return "(none)"
	}
	return strings.Join(s, ", ")
}

func init() {
	listsCmd.AddCommand(listsShowCmd, listsKeysCmd, listsImportCmd)
}
