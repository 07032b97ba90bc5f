package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"migrate", "recompute", "summary", "override", "evaluate", "seed"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "trust-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestOverrideCommand_Flags(t *testing.T) {
	for _, name := range []string{"decision", "reason", "by", "expires", "ttl"} {
		assert.NotNil(t, overrideCmd.Flags().Lookup(name), "override should have --%s flag", name)
	}
	assert.Equal(t, "0s", overrideCmd.Flags().Lookup("ttl").DefValue)
}

func TestEvaluateCommand_Flags(t *testing.T) {
	flag := evaluateCmd.Flags().Lookup("input")
	require.NotNil(t, flag, "evaluate command should have --input flag")
}

func TestSeedCommand_Flags(t *testing.T) {
	require.NotNil(t, seedCmd.Flags().Lookup("input"))
	flag := seedCmd.Flags().Lookup("recompute")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)
}

func TestParseExpiry(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		expires string
		ttl     time.Duration
		want    *time.Time
		wantErr string
	}{
		{name: "neither", want: nil},
		{name: "rfc3339", expires: "2024-07-01T00:00:00+02:00", want: timePtr(time.Date(2024, 6, 30, 22, 0, 0, 0, time.UTC))},
		{name: "ttl", ttl: 48 * time.Hour, want: timePtr(now.Add(48 * time.Hour))},
		{name: "both", expires: "2024-07-01T00:00:00Z", ttl: time.Hour, wantErr: "either --expires or --ttl"},
		{name: "bad timestamp", expires: "next week", wantErr: "parse --expires"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseExpiry(tt.expires, tt.ttl, now)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "want %s got %s", tt.want, got)
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }
