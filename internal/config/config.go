// Package config loads the aquasync configuration from an optional YAML file
// overlaid by AQUASYNC_* environment variables.
package config

import (
	"aquasync/internal/blob"
	"aquasync/internal/catalog"
	"aquasync/internal/core"
	"aquasync/internal/enrich"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no explicit path is given. A missing default file
// is not an error.
const DefaultPath = "aquasync.yaml"

// Environment variables overlaid on the file.
const (
	EnvStorageDriver = "AQUASYNC_STORAGE_DRIVER"
	EnvSQLitePath    = "AQUASYNC_SQLITE_PATH"
	EnvPostgresDSN   = "AQUASYNC_POSTGRES_DSN"
	EnvBadgerPath    = "AQUASYNC_BADGER_PATH"
	EnvCatalogDriver = "AQUASYNC_CATALOG_DRIVER"
	EnvCatalogPath   = "AQUASYNC_CATALOG_PATH"
	EnvCatalogDSN    = "AQUASYNC_CATALOG_DSN"
	EnvBlobDriver    = "AQUASYNC_BLOB_DRIVER"
	EnvBlobFSRoot    = "AQUASYNC_BLOB_FS_ROOT"
	EnvS3Bucket      = "AQUASYNC_BLOB_S3_BUCKET"
	EnvS3Region      = "AQUASYNC_BLOB_S3_REGION"
	EnvS3Endpoint    = "AQUASYNC_BLOB_S3_ENDPOINT"
	EnvS3Prefix      = "AQUASYNC_BLOB_S3_PREFIX"
	EnvS3PathStyle   = "AQUASYNC_BLOB_S3_PATH_STYLE"
	EnvS3AccessKey   = "AQUASYNC_BLOB_S3_ACCESS_KEY_ID"
	EnvS3SecretKey   = "AQUASYNC_BLOB_S3_SECRET_ACCESS_KEY"
	EnvLogLevel      = "AQUASYNC_LOG_LEVEL"
	EnvLogFormat     = "AQUASYNC_LOG_FORMAT"
	EnvHTTPAddr      = "AQUASYNC_HTTP_ADDR"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIModel   = "OPENAI_MODEL"
)

// RecomputeConfig sizes matrix runs.
type RecomputeConfig struct {
	Workers   int `json:"workers" yaml:"workers" validate:"gte=0,lte=64"`
	BatchSize int `json:"batch_size" yaml:"batch_size" validate:"gte=0"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// HTTPConfig configures the read API.
type HTTPConfig struct {
	Addr string `json:"addr" yaml:"addr" validate:"required"`
}

// Config is the full runtime configuration.
type Config struct {
	Storage    core.StorageConfig  `json:"storage" yaml:"storage"`
	Catalog    catalog.Config      `json:"catalog" yaml:"catalog"`
	Blob       blob.Config         `json:"blob" yaml:"blob"`
	Thresholds core.Thresholds     `json:"thresholds" yaml:"thresholds"`
	Planner    core.PlannerConfig  `json:"planner" yaml:"planner"`
	Retry      core.RetryPolicy    `json:"retry" yaml:"retry"`
	Recompute  RecomputeConfig     `json:"recompute" yaml:"recompute"`
	Enrich     enrich.Config       `json:"enrich" yaml:"enrich"`
	OpenAI     enrich.OpenAIConfig `json:"openai" yaml:"openai"`
	Log        LogConfig           `json:"log" yaml:"log"`
	HTTP       HTTPConfig          `json:"http" yaml:"http"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage:    core.DefaultStorageConfig(),
		Catalog:    catalog.DefaultConfig(),
		Blob:       blob.DefaultConfig(),
		Thresholds: core.DefaultThresholds(),
		Planner:    core.DefaultPlannerConfig(),
		Retry:      core.DefaultRetryPolicy(),
		Recompute:  RecomputeConfig{Workers: 4, BatchSize: 500},
		Enrich:     enrich.DefaultConfig(),
		Log:        LogConfig{Level: "info", Format: "text"},
		HTTP:       HTTPConfig{Addr: ":8080"},
	}
}

// Load reads path (DefaultPath when empty), applies the environment and
// validates the result. Every failure is a *core.ConfigError.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, &core.ConfigError{Op: "parse config " + path, Err: err}
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, &core.ConfigError{Op: "read config", Err: err}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays the recognised variables onto cfg. lookup is usually
// os.LookupEnv.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var driver, catalogDriver, blobDriver string
	str(EnvStorageDriver, &driver)
	if driver != "" {
		cfg.Storage.Driver = core.StorageDriver(strings.ToLower(driver))
	}
	str(EnvSQLitePath, &cfg.Storage.SQLitePath)
	str(EnvPostgresDSN, &cfg.Storage.PostgresDSN)
	str(EnvBadgerPath, &cfg.Storage.BadgerPath)

	str(EnvCatalogDriver, &catalogDriver)
	if catalogDriver != "" {
		cfg.Catalog.Driver = catalog.Driver(strings.ToLower(catalogDriver))
	}
	str(EnvCatalogPath, &cfg.Catalog.Path)
	str(EnvCatalogDSN, &cfg.Catalog.DSN)

	str(EnvBlobDriver, &blobDriver)
	if blobDriver != "" {
		cfg.Blob.Driver = blob.Driver(strings.ToLower(blobDriver))
	}
	str(EnvBlobFSRoot, &cfg.Blob.FSRoot)
	str(EnvS3Bucket, &cfg.Blob.S3.Bucket)
	str(EnvS3Region, &cfg.Blob.S3.Region)
	str(EnvS3Endpoint, &cfg.Blob.S3.Endpoint)
	str(EnvS3Prefix, &cfg.Blob.S3.Prefix)
	str(EnvS3AccessKey, &cfg.Blob.S3.AccessKeyID)
	str(EnvS3SecretKey, &cfg.Blob.S3.SecretAccessKey)
	if v, ok := lookup(EnvS3PathStyle); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &core.ConfigError{Op: "parse " + EnvS3PathStyle, Err: err}
		}
		cfg.Blob.S3.PathStyle = b
	}

	str(EnvLogLevel, &cfg.Log.Level)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	str(EnvLogFormat, &cfg.Log.Format)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	str(EnvHTTPAddr, &cfg.HTTP.Addr)
	str(EnvOpenAIKey, &cfg.OpenAI.APIKey)
	str(EnvOpenAIModel, &cfg.OpenAI.Model)
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the cross-section rules the tags
// cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return &core.ConfigError{Op: "validate config", Err: err}
	}
	if c.Blob.Driver == blob.DriverS3 && c.Blob.S3.Bucket == "" {
		return &core.ConfigError{Op: "validate config", Err: errors.New("blob.s3.bucket is required for the s3 driver")}
	}
	if c.Storage.Driver == core.StorageSQLite && c.Storage.SQLitePath == "" {
		return &core.ConfigError{Op: "validate config", Err: errors.New("storage.sqlite_path is required for the sqlite driver")}
	}
	return nil
}

// Logger builds the slog logger described by Log, writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// String renders the configuration as YAML with secrets redacted.
func (c Config) String() string {
	redacted := c
	if redacted.OpenAI.APIKey != "" {
		redacted.OpenAI.APIKey = "****"
	}
	if redacted.Blob.S3.SecretAccessKey != "" {
		redacted.Blob.S3.SecretAccessKey = "****"
	}
	if redacted.Storage.PostgresDSN != "" {
		redacted.Storage.PostgresDSN = redactDSN(redacted.Storage.PostgresDSN)
	}
	b, err := yaml.Marshal(redacted)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(b)
}

func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "****" + dsn[at:]
}
