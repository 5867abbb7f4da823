// Package manifest provides loading and validation of netsweep scan job manifests.
//
// A job manifest is a YAML or JSON file that configures all aspects of a
// scan job: worklist source, results destination, discovery tool behavior,
// and scheduling.
//
// Manifests are validated against a JSON Schema to ensure correctness before
// execution. The schema enforces strict typing and disallows unknown properties.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	worklist:
//	  path: worklist.csv
//	results:
//	  directory: ./results
//	discovery:
//	  timeout_seconds: 300
//	  resolve_dns: true
//	scan:
//	  concurrency: 5
package manifest

// Manifest represents a validated scan job manifest.
//
// Required fields are Version, Worklist, and Results. Discovery and Scan
// are optional with sensible defaults.
type Manifest struct {
	// Schema is an optional JSON Schema reference for editor support.
	// Example: "https://schemas.perimeterhq.dev/netsweep/v1.0.0/job-manifest.schema.json"
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Worklist configures the worklist source.
	Worklist WorklistConfig `json:"worklist" yaml:"worklist"`

	// Results configures result file destinations.
	Results ResultsConfig `json:"results" yaml:"results"`

	// Discovery configures the external discovery tool (optional).
	Discovery DiscoveryConfig `json:"discovery,omitempty" yaml:"discovery,omitempty"`

	// Scan configures scheduling behavior (optional).
	Scan ScanConfig `json:"scan,omitempty" yaml:"scan,omitempty"`
}

// WorklistConfig configures the worklist source.
type WorklistConfig struct {
	// Path is the worklist CSV file path.
	Path string `json:"path" yaml:"path"`
}

// ResultsConfig configures result file destinations.
type ResultsConfig struct {
	// Directory is where per-run result files are written.
	Directory string `json:"directory" yaml:"directory"`

	// Reconciled is the output path for the reconciled inventory table.
	// Default: "addresses.csv".
	Reconciled string `json:"reconciled,omitempty" yaml:"reconciled,omitempty"`
}

// DiscoveryConfig configures the external discovery tool.
//
// All fields are optional with sensible defaults applied during loading.
type DiscoveryConfig struct {
	// Binary is the discovery tool binary name or path.
	// Default: "discover".
	Binary string `json:"binary,omitempty" yaml:"binary,omitempty"`

	// TimeoutSeconds is the per-prefix invocation timeout.
	// Default: 300.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`

	// ResolveDNS passes --resolve-dns to the discovery tool.
	// Default: true.
	ResolveDNS *bool `json:"resolve_dns,omitempty" yaml:"resolve_dns,omitempty"`

	// StampScanTime stamps each record with the invocation start time.
	// Default: true.
	StampScanTime *bool `json:"stamp_scantime,omitempty" yaml:"stamp_scantime,omitempty"`
}

// ScanConfig configures scheduling behavior.
//
// All fields are optional with sensible defaults applied during loading.
type ScanConfig struct {
	// Concurrency is the number of parallel discovery invocations.
	// Range: 1-32. Default: 5.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`

	// RateLimit is the maximum process launches per second (0 = unlimited).
	// Default: 0.
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// Default values for optional configuration fields.
const (
	// DefaultVersion is the current manifest schema version.
	DefaultVersion = "1.0"

	// DefaultBinary is the default discovery tool binary.
	DefaultBinary = "discover"

	// DefaultTimeoutSeconds is the default per-prefix invocation timeout.
	DefaultTimeoutSeconds = 300

	// DefaultResolveDNS is the default DNS resolution setting.
	DefaultResolveDNS = true

	// DefaultStampScanTime is the default scan time stamping setting.
	DefaultStampScanTime = true

	// DefaultConcurrency is the default number of parallel invocations.
	DefaultConcurrency = 5

	// DefaultRateLimit is the default rate limit (0 = unlimited).
	DefaultRateLimit = 0.0

	// DefaultReconciled is the default reconciled table output path.
	DefaultReconciled = "addresses.csv"
)

// ApplyDefaults fills in default values for optional fields.
//
// This should be called after loading and validating the manifest to ensure
// all optional fields have sensible values.
func (m *Manifest) ApplyDefaults() {
	if m.Results.Reconciled == "" {
		m.Results.Reconciled = DefaultReconciled
	}

	if m.Discovery.Binary == "" {
		m.Discovery.Binary = DefaultBinary
	}
	if m.Discovery.TimeoutSeconds == 0 {
		m.Discovery.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if m.Discovery.ResolveDNS == nil {
		resolveDNS := DefaultResolveDNS
		m.Discovery.ResolveDNS = &resolveDNS
	}
	if m.Discovery.StampScanTime == nil {
		stamp := DefaultStampScanTime
		m.Discovery.StampScanTime = &stamp
	}

	if m.Scan.Concurrency == 0 {
		m.Scan.Concurrency = DefaultConcurrency
	}
	// RateLimit: 0 is a valid value (unlimited), so no default needed
}

// ResolveDNSEnabled returns whether the discovery tool should resolve DNS.
// Returns the configured value, or DefaultResolveDNS if not set.
func (d *DiscoveryConfig) ResolveDNSEnabled() bool {
	if d.ResolveDNS == nil {
		return DefaultResolveDNS
	}
	return *d.ResolveDNS
}

// StampScanTimeEnabled returns whether records are stamped with the
// invocation start time. Returns the configured value, or
// DefaultStampScanTime if not set.
func (d *DiscoveryConfig) StampScanTimeEnabled() bool {
	if d.StampScanTime == nil {
		return DefaultStampScanTime
	}
	return *d.StampScanTime
}
