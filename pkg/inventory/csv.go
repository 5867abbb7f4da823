package inventory

import (
	"fmt"
	"strings"
)

// WorklistHeader is the column set of the worklist file, in order.
var WorklistHeader = []string{"Prefix", "VRF", "Status", "Tags", "Tenant"}

// ResultsHeader is the column set of run output and reconciled files,
// in order.
var ResultsHeader = []string{"address", "dns_name", "status", "tags", "tenant", "VRF", "scantime"}

// columnIndex maps a header row to column positions, failing with
// ErrMalformedInput when a required column is absent. Validation
// happens once here, at parse time, not per-row.
func columnIndex(header, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", name, ErrMalformedInput)
		}
	}
	return idx, nil
}

// ParseWorklistHeader validates a worklist header row and returns the
// column index mapping.
func ParseWorklistHeader(header []string) (map[string]int, error) {
	return columnIndex(header, WorklistHeader)
}

// ParseResultsHeader validates a results header row and returns the
// column index mapping.
func ParseResultsHeader(header []string) (map[string]int, error) {
	return columnIndex(header, ResultsHeader)
}

// WorklistRowFromCSV converts a worklist data row using the index
// mapping from ParseWorklistHeader. The Tags column value is split on
// commas into the typed tag set.
func WorklistRowFromCSV(idx map[string]int, row []string) (WorklistRow, error) {
	get := func(name string) (string, error) {
		i := idx[name]
		if i >= len(row) {
			return "", fmt.Errorf("row has %d fields, column %q at %d: %w", len(row), name, i, ErrMalformedInput)
		}
		return row[i], nil
	}

	var r WorklistRow
	var err error
	if r.Prefix, err = get("Prefix"); err != nil {
		return WorklistRow{}, err
	}
	if r.VRF, err = get("VRF"); err != nil {
		return WorklistRow{}, err
	}
	if r.Status, err = get("Status"); err != nil {
		return WorklistRow{}, err
	}
	tags, err := get("Tags")
	if err != nil {
		return WorklistRow{}, err
	}
	r.Tags = SplitTags(tags)
	if r.Tenant, err = get("Tenant"); err != nil {
		return WorklistRow{}, err
	}
	return r, nil
}

// WorklistRowToCSV converts a row back to its file representation, in
// WorklistHeader order.
func (r WorklistRow) WorklistRowToCSV() []string {
	return []string{r.Prefix, r.VRF, r.Status, strings.Join(r.Tags, ", "), r.Tenant}
}

// HostRecordFromCSV converts a results data row using the index
// mapping from ParseResultsHeader.
func HostRecordFromCSV(idx map[string]int, row []string) (HostRecord, error) {
	get := func(name string) (string, error) {
		i := idx[name]
		if i >= len(row) {
			return "", fmt.Errorf("row has %d fields, column %q at %d: %w", len(row), name, i, ErrMalformedInput)
		}
		return row[i], nil
	}

	var h HostRecord
	var err error
	if h.Address, err = get("address"); err != nil {
		return HostRecord{}, err
	}
	if h.DNSName, err = get("dns_name"); err != nil {
		return HostRecord{}, err
	}
	if h.Status, err = get("status"); err != nil {
		return HostRecord{}, err
	}
	if h.Tags, err = get("tags"); err != nil {
		return HostRecord{}, err
	}
	if h.Tenant, err = get("tenant"); err != nil {
		return HostRecord{}, err
	}
	if h.VRF, err = get("VRF"); err != nil {
		return HostRecord{}, err
	}
	if h.ScanTime, err = get("scantime"); err != nil {
		return HostRecord{}, err
	}
	return h, nil
}

// HostRecordToCSV converts a record to its file representation, in
// ResultsHeader order.
func (h HostRecord) HostRecordToCSV() []string {
	return []string{h.Address, h.DNSName, h.Status, h.Tags, h.Tenant, h.VRF, h.ScanTime}
}

// SplitTags parses a comma-separated Tags column value into the typed
// tag set, dropping empty entries.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
