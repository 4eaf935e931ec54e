package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pshmarlow/scripts-demos/pkg/pluginsdk"
	"github.com/pshmarlow/scripts-demos/pkg/source"
)

// EnvPrefix prefixes environment overrides, e.g. ISSUES_WORKERS.
const EnvPrefix = "ISSUES"

// Config holds application configuration.
type Config struct {
	LogDir      string
	ArchiveGlob string
	Current     string
	// Stdin scans pre-fetched command output piped to the tool, after the files.
	Stdin      bool
	AnchorYear int
	Workers    int
	Encoding   string
	RulesPath  string

	MongoURI   string
	RunID      string
	S3URL      string
	OutputPath string

	LogLevel    string
	Development bool

	Plugins []pluginsdk.PluginConfig
}

// GetRunID implements pluginsdk.AppConfig.
func (c *Config) GetRunID() string { return c.RunID }

// GetOutputPath implements pluginsdk.AppConfig.
func (c *Config) GetOutputPath() string { return c.OutputPath }

// DefaultPlugins enables only the JSON report.
var DefaultPlugins = []pluginsdk.PluginConfig{{Name: "json-report", Enabled: true}}

// AddFlags registers the scan flags on cmd.
func AddFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "YAML config file (flags and ISSUES_* env vars override it)")
	f.String("log-dir", "/var/log", "Directory holding the current log and its archives")
	f.String("archive-glob", "qradar.old/qradar.error*.gz", "Glob of rotated archives, relative to --log-dir")
	f.String("current", "qradar.error", "Current log file, relative to --log-dir; empty to skip")
	f.Bool("stdin", false, "Also scan lines piped on stdin, e.g. zgrep output")
	f.Int("anchor-year", 0, "Year for yearless log dates (0 = current year)")
	f.Int("workers", 1, "Sources scanned in parallel")
	f.String("encoding", source.DefaultEncoding, "Text encoding of the logs")
	f.String("rules", "", "YAML rule file adding or overriding event kinds")
	f.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI for the mongo-export plugin")
	f.String("run-id", "", "Run ID used as database name and archive prefix (generated when empty)")
	f.String("s3-url", "", "s3://bucket/prefix for the s3-archive plugin")
	f.String("out", "", "Report output path (stdout when empty)")
	f.String("log-level", "info", "Log level")
	f.Bool("dev", false, "Human-readable console logging")
}

// Load resolves the configuration from cmd's flags, the optional config
// file and the environment, in that order of precedence.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{
		LogDir:      v.GetString("log-dir"),
		ArchiveGlob: v.GetString("archive-glob"),
		Current:     v.GetString("current"),
		Stdin:       v.GetBool("stdin"),
		AnchorYear:  v.GetInt("anchor-year"),
		Workers:     v.GetInt("workers"),
		Encoding:    v.GetString("encoding"),
		RulesPath:   v.GetString("rules"),
		MongoURI:    v.GetString("mongo-uri"),
		RunID:       v.GetString("run-id"),
		S3URL:       v.GetString("s3-url"),
		OutputPath:  v.GetString("out"),
		LogLevel:    v.GetString("log-level"),
		Development: v.GetBool("dev"),
	}
	if v.IsSet("plugins") {
		if err := v.UnmarshalKey("plugins", &cfg.Plugins); err != nil {
			return nil, fmt.Errorf("plugins: %w", err)
		}
	} else {
		cfg.Plugins = append([]pluginsdk.PluginConfig(nil), DefaultPlugins...)
	}
	if cfg.RunID == "" {
		cfg.RunID = NewRunID(time.Now())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.ArchiveGlob == "" && c.Current == "" && !c.Stdin {
		return errors.New("nothing to scan: set --archive-glob, --current or --stdin")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.AnchorYear < 0 {
		return fmt.Errorf("anchor year must not be negative, got %d", c.AnchorYear)
	}
	return nil
}

// NewRunID returns a string like "issues_20250628T163045_ab12f3c4".
func NewRunID(now time.Time) string {
	const prefix = "issues_"
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s%s_%s", prefix, now.Format("20060102T150405"), id[:8])
}

// Sources lists the archives matching ArchiveGlob, oldest first by
// modification time, followed by the current log. Paths that do not exist
// are still returned; the pipeline reports them as unavailable.
func (c *Config) Sources() ([]source.Source, error) {
	var out []source.Source
	if c.ArchiveGlob != "" {
		matches, err := filepath.Glob(c.resolve(c.ArchiveGlob))
		if err != nil {
			return nil, fmt.Errorf("archive glob %q: %w", c.ArchiveGlob, err)
		}
		type archive struct {
			path  string
			mtime time.Time
		}
		archives := make([]archive, 0, len(matches))
		for _, m := range matches {
			var mtime time.Time
			if fi, err := os.Stat(m); err == nil {
				if fi.IsDir() {
					continue
				}
				mtime = fi.ModTime()
			}
			archives = append(archives, archive{path: m, mtime: mtime})
		}
		sort.SliceStable(archives, func(i, j int) bool {
			if !archives[i].mtime.Equal(archives[j].mtime) {
				return archives[i].mtime.Before(archives[j].mtime)
			}
			return archives[i].path < archives[j].path
		})
		for _, a := range archives {
			out = append(out, source.NewFile(a.path))
		}
	}
	if c.Current != "" {
		out = append(out, source.NewFile(c.resolve(c.Current)))
	}
	return out, nil
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.LogDir == "" {
		return p
	}
	return filepath.Join(c.LogDir, p)
}
