package discover

import (
	"fmt"
	"strings"

	"github.com/perimeterhq/netsweep/pkg/inventory"
)

// HostFoundMarker prefixes every line of discovery output that reports
// a live host. The remainder of the line is either
//
//	<address>
//	<dns-name> (<address>)
//
// depending on whether reverse DNS produced a name.
const HostFoundMarker = "Host discovery report for"

// ParseHostLine parses one marker line into a host record carrying
// only the address fields; the caller fills in status, tags, tenant,
// VRF and scantime.
//
// The discovered address is always re-expressed with the scanned
// prefix's mask suffix: the mask is inherited from the scan target,
// never taken from tool output.
func ParseHostLine(line, prefix string) (inventory.HostRecord, error) {
	_, rest, found := strings.Cut(line, HostFoundMarker)
	if !found {
		return inventory.HostRecord{}, fmt.Errorf("no host marker in line %q", line)
	}

	tokens := strings.Fields(rest)
	if len(tokens) == 0 {
		return inventory.HostRecord{}, fmt.Errorf("no address token in line %q", line)
	}

	var dnsName, address string
	if len(tokens) > 1 {
		// A DNS name is present; the address is the token after it.
		dnsName = tokens[0]
		address = tokens[1]
	} else {
		address = tokens[len(tokens)-1]
	}
	address = strings.Trim(address, "()")
	if address == "" {
		return inventory.HostRecord{}, fmt.Errorf("empty address token in line %q", line)
	}

	return inventory.HostRecord{
		Address: address + "/" + maskSuffix(prefix),
		DNSName: dnsName,
	}, nil
}

// maskSuffix returns the subnet-mask part of a CIDR prefix string,
// e.g. "24" for "10.0.0.0/24".
func maskSuffix(prefix string) string {
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		return prefix[i+1:]
	}
	return prefix
}
