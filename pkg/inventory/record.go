// Package inventory defines the shared data model for the scan pipeline:
// worklist rows, host records, the tabular file schemas they travel in,
// and the error taxonomy used across components.
//
// Identity rules:
//   - A worklist row is identified by its prefix string; the worklist
//     file never contains two rows with the same prefix.
//   - A host record is identified by the composite (address, VRF) key;
//     the same address in two routing contexts is two distinct hosts.
package inventory

import (
	"fmt"
	"strings"
)

// Host record statuses.
const (
	// StatusActive marks a prefix or host as in service.
	StatusActive = "active"

	// StatusDeprecated marks a host that was present in an older
	// snapshot but absent from the newest one.
	StatusDeprecated = "deprecated"
)

// TagAutoscan is attached to every record produced by the pipeline so
// that externally managed addresses can be told apart from scanned ones.
const TagAutoscan = "autoscan"

// NoScanTagPrefix excludes a worklist row from scanning. Matching is a
// prefix match to tolerate suffixed variants of the tag name; this also
// excludes any unrelated tag that happens to share the leading
// characters, which is accepted for compatibility with existing data.
const NoScanTagPrefix = "Disable Automatic Scanning"

// WorklistRow is one entry of the worklist file: a network prefix that
// still has to be scanned, with the context needed to attribute
// discovered hosts.
type WorklistRow struct {
	// Prefix is the network in CIDR notation, e.g. "10.0.0.0/24".
	Prefix string

	// VRF is the routing context the prefix belongs to.
	VRF string

	// Status is the prefix lifecycle state; only StatusActive rows
	// are eligible for scanning.
	Status string

	// Tags is the prefix tag set, parsed from the comma-separated
	// column value.
	Tags []string

	// Tenant is the owning tenant, "N/A" when unassigned.
	Tenant string
}

// Eligible reports whether the row should be dispatched to the
// discovery runner: the prefix is active and none of its tags carries
// the no-scan marker.
func (r WorklistRow) Eligible() bool {
	if r.Status != StatusActive {
		return false
	}
	for _, tag := range r.Tags {
		if strings.HasPrefix(tag, NoScanTagPrefix) {
			return false
		}
	}
	return true
}

// HostRecord is one discovered host. Records are immutable once
// written: each scan run produces a fresh set, and only the reconciler
// may flip Status to deprecated when merging snapshots.
type HostRecord struct {
	// Address is the host address with the mask inherited from the
	// scanned prefix, e.g. "10.0.0.5/24".
	Address string

	// DNSName is the reverse-DNS name when resolution was enabled
	// and the discovery tool reported one; empty otherwise.
	DNSName string

	// Status is StatusActive at creation time.
	Status string

	// Tags is the comma-separated tag value, TagAutoscan for
	// pipeline-produced records.
	Tags string

	// Tenant is inherited from the worklist row.
	Tenant string

	// VRF is the routing context, inherited from the worklist row.
	VRF string

	// ScanTime is the stamp of the discovery invocation in
	// "2006-01-02 15:04:05" form, or empty when stamping is disabled.
	ScanTime string
}

// Key returns the composite identity of the record. Two hosts with the
// same address in different routing contexts are distinct entities.
func (h HostRecord) Key() string {
	return h.Address + "_" + h.VRF
}

func (h HostRecord) String() string {
	return fmt.Sprintf("%s (vrf=%s status=%s)", h.Address, h.VRF, h.Status)
}
