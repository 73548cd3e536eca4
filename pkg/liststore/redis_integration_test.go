//go:build integration

package liststore

import (
	"context"
	"sort"
	"testing"

	"github.com/newtron-network/relayctl/internal/testutil"
)

func TestRedisStore_Lookup(t *testing.T) {
	testutil.SkipIfNoRedis(t)
	addr := testutil.RedisAddr()
	testutil.FlushDB(t, addr, testutil.ListDB)

	ctx := context.Background()
	s := NewRedisStore(addr, testutil.ListDB)
	defer s.Close()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	rows := []Row{
		{"Key": "Site-001", "Relays": "192.168.255.67,192.168.255.68", "Exclusions": "10.100.1.1", "Region": "east"},
		{"Key": "Site-002", "Relays": "10.9.9.9", "Region": "west"},
	}
	for _, r := range rows {
		if err := s.PutRow(ctx, "DHCP Relays", "Key", r); err != nil {
			t.Fatalf("PutRow() error: %v", err)
		}
	}

	got, err := s.Lookup(ctx, "DHCP Relays", "Key", "Site-001", "Relays", "NOTFOUND")
	if err != nil || got != "192.168.255.67,192.168.255.68" {
		t.Errorf("Lookup(Key) = %q, %v", got, err)
	}

	got, err = s.Lookup(ctx, "DHCP Relays", "Region", "west", "Relays", "NOTFOUND")
	if err != nil || got != "10.9.9.9" {
		t.Errorf("Lookup(Region) = %q, %v", got, err)
	}

	got, err = s.Lookup(ctx, "DHCP Relays", "Key", "Site-002", "Exclusions", "NOTFOUND")
	if err != nil || got != "NOTFOUND" {
		t.Errorf("Lookup(missing column) = %q, %v", got, err)
	}

	got, err = s.Lookup(ctx, "DHCP Relays", "Key", "Site-404", "Relays", "NOTFOUND")
	if err != nil || got != "NOTFOUND" {
		t.Errorf("Lookup(missing key) = %q, %v", got, err)
	}

	keys, err := s.ListKeys(ctx, "DHCP Relays")
	if err != nil {
		t.Fatalf("ListKeys() error: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "Site-001" || keys[1] != "Site-002" {
		t.Errorf("ListKeys() = %v", keys)
	}
}
