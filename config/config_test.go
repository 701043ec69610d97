package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Dialogue.Timeout)
	assert.Equal(t, 500, cfg.Dialogue.MaxActiveDialogues)
	assert.Equal(t, 0.7, cfg.Scoring.Weights.RecentMessage)
	assert.True(t, cfg.Scoring.PreferDialogue)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
dialogue:
  timeout: 10m
  min_messages: 5
scoring:
  prefer_dialogue: false
  thresholds:
    hot_lead: 90
    warm_lead: 75
    cold_lead: 60
notify:
  throttle_interval: 45m
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Dialogue.Timeout)
	assert.Equal(t, 5, cfg.Dialogue.MinMessages)
	assert.False(t, cfg.Scoring.PreferDialogue)
	assert.Equal(t, 90, cfg.Scoring.Thresholds.Hot)
	assert.Equal(t, 45*time.Minute, cfg.Notify.ThrottleInterval)
	// Untouched keys keep defaults.
	assert.Equal(t, 200, cfg.Dialogue.MaxMessages)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg := Default()
	cfg.Scoring.Thresholds.Warm = 95 // warm above hot
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Scoring.Thresholds.Hot = 120
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadWindowsAndCaps(t *testing.T) {
	cfg := Default()
	cfg.Dialogue.Timeout = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Dialogue.MaxActiveDialogues = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Analyzer.Provider = "oracle"
	assert.Error(t, cfg.Validate())
}

func TestDialogueLimits(t *testing.T) {
	d := Default().Dialogue
	lim := d.Limits()
	assert.Equal(t, d.MaxMessages, lim.MaxMessages)
	assert.Equal(t, d.MaxParticipants, lim.MaxParticipants)
	assert.Equal(t, d.SoftCloseGrace, lim.SoftCloseGrace)
}
