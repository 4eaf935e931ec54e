package config

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/pshmarlow/scripts-demos/pkg/pluginsdk"
	"github.com/pshmarlow/scripts-demos/pkg/source"
)

func command(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "scan", RunE: func(*cobra.Command, []string) error { return nil }}
	AddFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(command(t))
	require.NoError(t, err)
	require.Equal(t, "/var/log", cfg.LogDir)
	require.Equal(t, "qradar.error", cfg.Current)
	require.Equal(t, 1, cfg.Workers)
	require.Equal(t, DefaultPlugins, cfg.Plugins)
	require.Regexp(t, regexp.MustCompile(`^issues_\d{8}T\d{6}_[0-9a-f]{8}$`), cfg.RunID)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workers: 3
anchor-year: 2022
out: from-file.json
plugins:
  - name: json-report
    enabled: true
  - name: mongo-export
    enabled: false
`), 0o644))

	t.Setenv("ISSUES_ANCHOR_YEAR", "2023")
	cfg, err := Load(command(t, "--config", path, "--out", "report.json", "--run-id", "fixed"))
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Workers, "file")
	require.Equal(t, 2023, cfg.AnchorYear, "env over file")
	require.Equal(t, "report.json", cfg.OutputPath, "flag over file")
	require.Equal(t, "fixed", cfg.GetRunID())
	require.Equal(t, []pluginsdk.PluginConfig{
		{Name: "json-report", Enabled: true},
		{Name: "mongo-export", Enabled: false},
	}, cfg.Plugins)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(command(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, err)

	_, err = Load(command(t, "--archive-glob=", "--current="))
	require.Error(t, err)

	_, err = Load(command(t, "--workers=-2"))
	require.Error(t, err)
}

func TestSourcesOldestArchiveFirst(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "qradar.old"), 0o755))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"qradar.error.1.gz", "qradar.error.2.gz", "qradar.error.3.gz"} {
		p := filepath.Join(dir, "qradar.old", name)
		require.NoError(t, os.WriteFile(p, nil, 0o644))
		// .1 is the newest rotation
		mtime := base.Add(-time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(p, mtime, mtime))
	}

	cfg := &Config{LogDir: dir, ArchiveGlob: "qradar.old/qradar.error*.gz", Current: "qradar.error"}
	srcs, err := cfg.Sources()
	require.NoError(t, err)

	var names []string
	for _, s := range srcs {
		names = append(names, filepath.Base(s.Name()))
	}
	require.Equal(t, []string{"qradar.error.3.gz", "qradar.error.2.gz", "qradar.error.1.gz", "qradar.error"}, names)
	require.IsType(t, source.File{}, srcs[3])
}

func TestNewRunIDUnique(t *testing.T) {
	now := time.Date(2025, 6, 28, 16, 30, 45, 0, time.UTC)
	a, b := NewRunID(now), NewRunID(now)
	require.NotEqual(t, a, b)
	require.Contains(t, a, "issues_20250628T163045_")
}

func TestStdinOnly(t *testing.T) {
	cfg, err := Load(command(t, "--archive-glob=", "--current=", "--stdin"))
	require.NoError(t, err)
	require.True(t, cfg.Stdin)
	srcs, err := cfg.Sources()
	require.NoError(t, err)
	require.Empty(t, srcs)
}
