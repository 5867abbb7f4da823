package cmd

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestSetVersionInfo(t *testing.T) {
	// Save original values
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{
			name:      "set all values",
			version:   "1.0.0",
			commit:    "abc123",
			buildDate: "2026-08-30",
		},
		{
			name:      "set dev version",
			version:   "dev",
			commit:    "HEAD",
			buildDate: "unknown",
		},
		{
			name:      "set empty values",
			version:   "",
			commit:    "",
			buildDate: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
		})
	}
}

func TestSetDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	setDefaults()

	// Verify logging defaults
	assert.Equal(t, "info", viper.GetString("logging.level"))

	// Verify worklist and results defaults
	assert.Equal(t, "worklist.csv", viper.GetString("worklist.path"))
	assert.Equal(t, "results", viper.GetString("results.directory"))
	assert.Equal(t, "addresses.csv", viper.GetString("results.reconciled"))

	// Verify discovery defaults
	assert.Equal(t, "discover", viper.GetString("discovery.binary"))
	assert.Equal(t, 300, viper.GetInt("discovery.timeout_seconds"))
	assert.True(t, viper.GetBool("discovery.resolve_dns"))
	assert.True(t, viper.GetBool("discovery.stamp_scantime"))

	// Verify scan defaults
	assert.Equal(t, 5, viper.GetInt("scan.concurrency"))
	assert.Equal(t, 0.0, viper.GetFloat64("scan.rate_limit"))
}

func TestExitError(t *testing.T) {
	err := exitError(3, "something broke", assert.AnError)

	var coded *codedError
	assert.ErrorAs(t, err, &coded)
	assert.Equal(t, 3, coded.code)
	assert.Contains(t, err.Error(), "something broke")
	assert.ErrorIs(t, err, assert.AnError)
}
