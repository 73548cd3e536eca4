package util

import (
	"net"
)

// IsValidIP checks if a string is a valid IPv4 or IPv6 address
func IsValidIP(ipStr string) bool {
	return net.ParseIP(ipStr) != nil
}

// InvalidIPs returns the entries of addrs that are not IP addresses, in order.
func InvalidIPs(addrs []string) []string {
	var bad []string
	for _, a := range addrs {
		if !IsValidIP(a) {
			bad = append(bad, a)
		}
	}
	return bad
}
