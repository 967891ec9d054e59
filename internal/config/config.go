// Package config resolves plasmap settings from defaults, an optional YAML
// file, a .env file, PLASMAP_* environment variables and command flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"plasmap/internal/blob"
	"plasmap/internal/core"
	"plasmap/pkg/domain"
)

// EnvPrefix prefixes every environment variable, e.g. PLASMAP_STORAGE_DRIVER.
const EnvPrefix = "PLASMAP"

// ErrInvalid marks a configuration value that failed validation.
var ErrInvalid = errors.New("invalid configuration")

// LogConfig selects the slog handler.
type LogConfig struct {
	// debug, info, warn or error
	Level string `mapstructure:"level"`
	// text or json
	Format string `mapstructure:"format"`
}

// RenderConfig holds map rendering settings.
type RenderConfig struct {
	OutputDir   string  `mapstructure:"output_dir"`
	DPI         float64 `mapstructure:"dpi"`
	LabelRadius float64 `mapstructure:"label_radius"`
	// files rendered in parallel, 0 for GOMAXPROCS
	Jobs int `mapstructure:"jobs"`
	// publish maps to the blob store
	Publish bool `mapstructure:"publish"`
	// palette overrides as type=#rrggbb
	Palette []string `mapstructure:"palette"`
}

// WorkspaceConfig locates temporary run directories.
type WorkspaceConfig struct {
	TempRoot string        `mapstructure:"temp_root"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// Config is the resolved application configuration.
type Config struct {
	DefaultNamespace string             `mapstructure:"default_namespace"`
	Owner            string             `mapstructure:"owner"`
	DataDir          string             `mapstructure:"data_dir"`
	Log              LogConfig          `mapstructure:"log"`
	Storage          core.StorageConfig `mapstructure:"storage"`
	Blob             blob.Config        `mapstructure:"blob"`
	Render           RenderConfig       `mapstructure:"render"`
	Workspace        WorkspaceConfig    `mapstructure:"workspace"`
}

var defaults = map[string]any{
	"default_namespace":         domain.DefaultNamespace,
	"owner":                     "",
	"data_dir":                  "data",
	"log.level":                 "info",
	"log.format":                "text",
	"storage.driver":            string(core.StorageSQLite),
	"storage.sqlite_path":       "plasmap.db",
	"storage.postgres_dsn":      "",
	"blob.driver":               string(blob.DriverFilesystem),
	"blob.fs_root":              "blobdata",
	"blob.s3.bucket":            "",
	"blob.s3.region":            "",
	"blob.s3.endpoint":          "",
	"blob.s3.access_key_id":     "",
	"blob.s3.secret_access_key": "",
	"blob.s3.path_style":        false,
	"render.output_dir":         "maps",
	"render.dpi":                300.0,
	"render.label_radius":       1.35,
	"render.jobs":               0,
	"render.publish":            false,
	"render.palette":            []string{},
	"workspace.temp_root":       filepath.Join(os.TempDir(), "plasmap"),
	"workspace.max_age":         24 * time.Hour,
}

// flagKeys maps command flag names to configuration keys. Flags only
// override when set on the command line.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"namespace":  "default_namespace",
	"owner":      "owner",
	"data-dir":   "data_dir",
	"storage":    "storage.driver",
	"db":         "storage.sqlite_path",
	"out":        "render.output_dir",
	"dpi":        "render.dpi",
	"jobs":       "render.jobs",
	"publish":    "render.publish",
	"max-age":    "workspace.max_age",
}

// Options locate the sources Load reads.
type Options struct {
	// File is an optional YAML config file.
	File string
	// EnvFile is loaded into the environment when present. Defaults to .env.
	EnvFile string
	// Flags are bound through flagKeys.
	Flags *pflag.FlagSet
}

// Load resolves the configuration.
func Load(opts Options) (Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return Config{}, err
	}
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	}
	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Palette parses Render.Palette into overrides for graphic.NewClassifier.
func (c Config) Palette() (map[string]string, error) {
	out := make(map[string]string, len(c.Render.Palette))
	for _, entry := range c.Render.Palette {
		typ, col, ok := strings.Cut(entry, "=")
		typ, col = strings.TrimSpace(typ), strings.TrimSpace(col)
		if !ok || typ == "" || !hexColor.MatchString(col) {
			return nil, fmt.Errorf("%w: palette entry %q, want type=#rrggbb", ErrInvalid, entry)
		}
		out[typ] = col
	}
	return out, nil
}

// Validate checks value ranges and backend names.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DefaultNamespace) == "" {
		errs = append(errs, fmt.Errorf("%w: default_namespace is empty", ErrInvalid))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format))
	}
	switch core.StorageDriver(strings.ToLower(string(c.Storage.Driver))) {
	case core.StorageSQLite, core.StorageMemory, core.StoragePostgres:
	default:
		errs = append(errs, fmt.Errorf("%w: storage.driver %q", ErrInvalid, c.Storage.Driver))
	}
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("%w: blob.driver %q", ErrInvalid, c.Blob.Driver))
	}
	if c.Render.Publish && c.Blob.Driver == blob.DriverS3 && c.Blob.S3.Bucket == "" {
		errs = append(errs, fmt.Errorf("%w: blob.s3.bucket is required to publish to s3", ErrInvalid))
	}
	if c.Render.DPI <= 0 {
		errs = append(errs, fmt.Errorf("%w: render.dpi must be positive", ErrInvalid))
	}
	if c.Render.LabelRadius <= 0 {
		errs = append(errs, fmt.Errorf("%w: render.label_radius must be positive", ErrInvalid))
	}
	if c.Render.Jobs < 0 {
		errs = append(errs, fmt.Errorf("%w: render.jobs must not be negative", ErrInvalid))
	}
	if c.Workspace.MaxAge <= 0 {
		errs = append(errs, fmt.Errorf("%w: workspace.max_age must be positive", ErrInvalid))
	}
	if _, err := c.Palette(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
