package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	cfg := &Config{}
	var got *Config
	cmd := newCmd(cfg, func(_ *cobra.Command, c *Config) error {
		got = c
		return nil
	})
	if args == nil {
		args = []string{} // keep cobra off os.Args
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return got, err
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := runCmd(t)
	require.NoError(t, err)
	assert.Equal(t, 5175, cfg.port)
	assert.Equal(t, time.Second, cfg.mismatchDelay)
	assert.Equal(t, 60*time.Minute, cfg.sessionTimeout)
}

func TestConfigEnvAndFlags(t *testing.T) {
	t.Setenv("MEMORY_PORT", "9000")
	t.Setenv("MEMORY_MISMATCH_DELAY", "250ms")

	cfg, err := runCmd(t)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.port)
	assert.Equal(t, 250*time.Millisecond, cfg.mismatchDelay)

	cfg, err = runCmd(t, "--port", "9100")
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.port)
}

func TestConfigValidate(t *testing.T) {
	_, err := runCmd(t, "--port", "0")
	assert.Error(t, err)

	_, err = runCmd(t, "--mismatch-delay", "0s")
	assert.Error(t, err)

	_, err = runCmd(t, "--jwt-secret", "")
	assert.ErrorContains(t, err, "jwt-secret")

	_, err = runCmd(t, "--production")
	assert.ErrorContains(t, err, "jwt-secret")

	_, err = runCmd(t, "--production", "--jwt-secret", "s3cret")
	assert.NoError(t, err)
}
