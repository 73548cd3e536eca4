package util

import "testing"

func TestSplitCommaSeparated(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"10.1.1.1", 1},
		{"10.1.1.1,10.2.2.2", 2},
		{"10.1.1.1, 10.2.2.2, 10.3.3.3", 3},
		{"10.1.1.1,,", 1},
	}

	for _, tt := range tests {
		got := SplitCommaSeparated(tt.input)
		if len(got) != tt.want {
			t.Errorf("SplitCommaSeparated(%q) = %v (len %d), want len %d", tt.input, got, len(got), tt.want)
		}
	}
}

func TestStringSet(t *testing.T) {
	set := StringSet([]string{"a", "b", "a"})
	if len(set) != 2 {
		t.Errorf("StringSet size = %d, want 2", len(set))
	}
	if _, ok := set["b"]; !ok {
		t.Error("StringSet missing b")
	}
}

func TestContainsAny(t *testing.T) {
	if !ContainsAny("Cisco IOS-XE Software", "IOSXE", "IOS-XE") {
		t.Error("expected match on IOS-XE")
	}
	if ContainsAny("Cisco NX-OS", "IOSXE", "IOS-XE") {
		t.Error("unexpected match")
	}
}

func TestHasAnyPrefix(t *testing.T) {
	if !HasAnyPrefix("c8000v", "isr4", "c8000") {
		t.Error("expected prefix match")
	}
	if HasAnyPrefix("cat9k_iosxe", "isr4", "c8000") {
		t.Error("unexpected prefix match")
	}
}
