// Package config loads server settings from flags, environment and an
// optional yaml file.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/db"
	"github.com/vinceanalytics/tally/internal/imports"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Listen      string               `yaml:"listen"`
	LogLevel    string               `yaml:"log_level"`
	ClickHouse  ClickHouse           `yaml:"clickhouse"`
	Database    Database             `yaml:"database"`
	Bucket      imports.BucketConfig `yaml:"bucket"`
	CORSOrigins []string             `yaml:"cors_origins"`
}

type ClickHouse struct {
	DSN     string        `yaml:"dsn"`
	Retries int           `yaml:"retries"`
	Timeout time.Duration `yaml:"timeout"`
}

type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

const defaultRetries = 3

func Defaults() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		ClickHouse: ClickHouse{
			DSN:     "clickhouse://localhost:9000/default",
			Retries: defaultRetries,
			Timeout: 30 * time.Second,
		},
		Database: Database{Driver: db.SQLite, DSN: "tally.db"},
		Bucket:   imports.BucketConfig{Provider: imports.Filesystem, Dir: "imports"},
	}
}

func Flags() []cli.Flag {
	d := Defaults()
	return []cli.Flag{
		&cli.StringFlag{
			Category: "core",
			Name:     "config",
			Usage:    "path to yaml configuration file",
			Sources:  cli.EnvVars("TALLY_CONFIG"),
		},
		&cli.StringFlag{
			Category: "core",
			Name:     "listen",
			Usage:    "http address to listen to",
			Value:    d.Listen,
			Sources:  cli.EnvVars("TALLY_LISTEN"),
		},
		&cli.StringFlag{
			Category: "core",
			Name:     "log-level",
			Usage:    "log level, values are (debug,info,warn,error)",
			Value:    d.LogLevel,
			Sources:  cli.EnvVars("TALLY_LOG_LEVEL"),
		},
		&cli.StringFlag{
			Category: "clickhouse",
			Name:     "clickhouse-dsn",
			Usage:    "events database",
			Value:    d.ClickHouse.DSN,
			Sources:  cli.EnvVars("TALLY_CLICKHOUSE_DSN"),
		},
		&cli.IntFlag{
			Category: "clickhouse",
			Name:     "clickhouse-retries",
			Usage:    "times to retry a query failing with a transient error",
			Value:    defaultRetries,
			Sources:  cli.EnvVars("TALLY_CLICKHOUSE_RETRIES"),
		},
		&cli.DurationFlag{
			Category: "clickhouse",
			Name:     "clickhouse-timeout",
			Usage:    "deadline of a single query",
			Value:    d.ClickHouse.Timeout,
			Sources:  cli.EnvVars("TALLY_CLICKHOUSE_TIMEOUT"),
		},
		&cli.StringFlag{
			Category: "database",
			Name:     "db-driver",
			Usage:    "driver of the profiles and imports database (sqlite,mysql)",
			Value:    d.Database.Driver,
			Sources:  cli.EnvVars("TALLY_DB_DRIVER"),
		},
		&cli.StringFlag{
			Category: "database",
			Name:     "db-dsn",
			Usage:    "profiles and imports database",
			Value:    d.Database.DSN,
			Sources:  cli.EnvVars("TALLY_DB_DSN"),
		},
		&cli.StringFlag{
			Category: "imports",
			Name:     "bucket-provider",
			Usage:    "where import files are kept (filesystem,s3)",
			Value:    d.Bucket.Provider,
			Sources:  cli.EnvVars("TALLY_BUCKET_PROVIDER"),
		},
		&cli.StringFlag{
			Category: "imports",
			Name:     "bucket-dir",
			Usage:    "directory of the filesystem bucket",
			Value:    d.Bucket.Dir,
			Sources:  cli.EnvVars("TALLY_BUCKET_DIR"),
		},
		&cli.StringSliceFlag{
			Category: "core",
			Name:     "cors-origin",
			Usage:    "origins allowed to call the api, all when empty",
			Sources:  cli.EnvVars("TALLY_CORS_ORIGINS"),
		},
	}
}

// Base builds a Config from the parsed flags.
func Base(x *cli.Command) Config {
	return Config{
		Listen:   x.String("listen"),
		LogLevel: x.String("log-level"),
		ClickHouse: ClickHouse{
			DSN:     x.String("clickhouse-dsn"),
			Retries: int(x.Int("clickhouse-retries")),
			Timeout: x.Duration("clickhouse-timeout"),
		},
		Database: Database{
			Driver: x.String("db-driver"),
			DSN:    x.String("db-dsn"),
		},
		Bucket: imports.BucketConfig{
			Provider: x.String("bucket-provider"),
			Dir:      x.String("bucket-dir"),
		},
		CORSOrigins: x.StringSlice("cors-origin"),
	}
}

// Load overlays the yaml file at path, if any, on base. Relative paths in the
// file resolve against its directory.
func Load(base Config, path string) (Config, error) {
	if path == "" {
		return base, base.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %w", err)
	}
	var f Config
	if err := yaml.UnmarshalStrict(b, &f); err != nil {
		return Config{}, core.ErrValidation.New(fmt.Sprintf("config file %s: %v", path, err))
	}
	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return Config{}, err
	}
	f.Bucket.Dir = resolve(root, f.Bucket.Dir)
	if f.Database.Driver == db.SQLite || (f.Database.Driver == "" && base.Database.Driver == db.SQLite) {
		f.Database.DSN = resolve(root, f.Database.DSN)
	}
	o := merge(base, f)
	return o, o.Validate()
}

func merge(base, f Config) Config {
	set(&base.Listen, f.Listen)
	set(&base.LogLevel, f.LogLevel)
	set(&base.ClickHouse.DSN, f.ClickHouse.DSN)
	if f.ClickHouse.Retries != 0 {
		base.ClickHouse.Retries = f.ClickHouse.Retries
	}
	if f.ClickHouse.Timeout != 0 {
		base.ClickHouse.Timeout = f.ClickHouse.Timeout
	}
	set(&base.Database.Driver, f.Database.Driver)
	set(&base.Database.DSN, f.Database.DSN)
	set(&base.Bucket.Provider, f.Bucket.Provider)
	set(&base.Bucket.Dir, f.Bucket.Dir)
	if f.Bucket.S3.Bucket != "" {
		base.Bucket.S3 = f.Bucket.S3
	}
	if len(f.CORSOrigins) > 0 {
		base.CORSOrigins = f.CORSOrigins
	}
	return base
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, filepath.Clean(path))
}

func (c Config) Validate() error {
	switch {
	case c.Listen == "":
		return core.ErrValidation.New("listen address is required")
	case c.ClickHouse.DSN == "":
		return core.ErrValidation.New("clickhouse dsn is required")
	case c.ClickHouse.Retries < 0:
		return core.ErrValidation.New("clickhouse retries must not be negative")
	case c.Database.Driver != db.SQLite && c.Database.Driver != db.MySQL:
		return core.ErrValidation.New("unknown database driver " + c.Database.Driver)
	case c.Database.DSN == "":
		return core.ErrValidation.New("database dsn is required")
	case c.Bucket.Provider != imports.Filesystem && c.Bucket.Provider != imports.S3:
		return core.ErrValidation.New("unknown bucket provider " + c.Bucket.Provider)
	}
	return nil
}

type configKey struct{}

func With(ctx context.Context, c *Config) context.Context {
	return context.WithValue(ctx, configKey{}, c)
}

func Get(ctx context.Context) *Config {
	c, _ := ctx.Value(configKey{}).(*Config)
	return c
}
