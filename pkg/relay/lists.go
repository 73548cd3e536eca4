// Package relay reconciles the DHCP relay addresses configured on a device's
// interfaces against an authorized list.
package relay

import (
	"context"
	"fmt"

	"github.com/newtron-network/relayctl/pkg/liststore"
	"github.com/newtron-network/relayctl/pkg/util"
)

// Authorized relay list layout.
const (
	DefaultListName  = "DHCP Relays"
	KeyColumn        = "Key"
	RelaysColumn     = "Relays"
	ExclusionsColumn = "Exclusions"
	NotFound         = "NOTFOUND"

	// PlaceholderKey is the default list key offered to operators. It is
	// rejected like a missing key.
	PlaceholderKey = "Row ID Key from DHCP Relay List"
)

// Lists is one row of the authorized relay list: the relays every relaying
// interface must carry, and the relays that are tolerated but never added.
type Lists struct {
	Key        string   `json:"key"`
	Authorized []string `json:"authorized"`
	Excluded   []string `json:"excluded,omitempty"`
}

// LoadLists reads the authorized and excluded relays for key from list. The
// key must be supplied and must exist; a missing exclusions cell means no
// exclusions.
func LoadLists(ctx context.Context, store liststore.Store, list, key string) (*Lists, error) {
	if list == "" {
		list = DefaultListName
	}
	if key == "" || key == PlaceholderKey {
		return nil, &util.MissingKeyError{List: list, Reason: "a list key must be supplied"}
	}

	relays, err := store.Lookup(ctx, list, KeyColumn, key, RelaysColumn, NotFound)
	if err != nil {
		return nil, fmt.Errorf("looking up %q in %q: %w", key, list, err)
	}
	if relays == NotFound {
		return nil, &util.MissingKeyError{List: list, Key: key, Reason: "key does not exist"}
	}

	excluded, err := store.Lookup(ctx, list, KeyColumn, key, ExclusionsColumn, NotFound)
	if err != nil {
		return nil, fmt.Errorf("looking up exclusions for %q in %q: %w", key, list, err)
	}

	l := &Lists{Key: key, Authorized: util.SplitCommaSeparated(relays)}
	if excluded != NotFound {
		l.Excluded = util.SplitCommaSeparated(excluded)
	}

	if len(l.Authorized) == 0 {
		util.Warnf("list %q key %q authorizes no relays; every configured relay will be removed", list, key)
	}
	for _, bad := range util.InvalidIPs(append(append([]string{}, l.Authorized...), l.Excluded...)) {
		util.Warnf("list %q key %q: %q is not an IP address", list, key, bad)
	}
	return l, nil
}
