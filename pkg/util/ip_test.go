package util

import (
	"reflect"
	"testing"
)

func TestIsValidIP(t *testing.T) {
	if !IsValidIP("2001:db8::1") {
		t.Error("IPv6 address should be valid")
	}
	if IsValidIP("dhcp-server") {
		t.Error("hostname should not be valid")
	}
}

func TestInvalidIPs(t *testing.T) {
	got := InvalidIPs([]string{"10.1.1.1", "bogus", "10.2.2.2", "10.3.3"})
	want := []string{"bogus", "10.3.3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InvalidIPs() = %v, want %v", got, want)
	}
	if got := InvalidIPs([]string{"10.1.1.1"}); got != nil {
		t.Errorf("InvalidIPs() = %v, want nil", got)
	}
}
