package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default operational limits. MinFreeSpace protects the backup destination
// from filling up mid-dump; MinDumpLines is the heuristic floor below which
// a dump is considered truncated.
const (
	DefaultRetention    = 7
	DefaultMinFreeSpace = 50 * 1024 * 1024
	DefaultMinDumpLines = 10
	DefaultExecTimeout  = 5 * time.Minute
	DefaultTopTables    = 10
)

// RuntimeConfig selects the container runtime binary and the deadline
// applied to every external invocation.
type RuntimeConfig struct {
	Binary      string        `mapstructure:"binary" yaml:"binary"`
	ExecTimeout time.Duration `mapstructure:"exec_timeout" yaml:"exec_timeout"`
}

// AppConfig describes the workflow engine container and its embedded CLI.
type AppConfig struct {
	Container  string `mapstructure:"container" yaml:"container"`
	CLI        string `mapstructure:"cli" yaml:"cli"`
	ExportPath string `mapstructure:"export_path" yaml:"export_path"`
}

// DatabaseConfig describes the database container, the dump credentials,
// and the optional direct connection used by the manifest table-size probe.
type DatabaseConfig struct {
	Container string `mapstructure:"container" yaml:"container"`
	Name      string `mapstructure:"name" yaml:"name"`
	User      string `mapstructure:"user" yaml:"user"`
	Password  string `mapstructure:"password" yaml:"password"`
	Host      string `mapstructure:"host" yaml:"host"`
	Port      int    `mapstructure:"port" yaml:"port"`
}

// DSN builds the connection string for the table statistics probe.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/information_schema?parseTime=true", d.User, d.Password, d.Host, d.Port)
}

// CompressionConfig selects the dump compression algorithm and level.
type CompressionConfig struct {
	Algorithm string `mapstructure:"algorithm" yaml:"algorithm"`
	Level     int    `mapstructure:"level" yaml:"level"`
}

// BackupConfig holds the destination layout and retention policy.
type BackupConfig struct {
	Dir          string            `mapstructure:"dir" yaml:"dir"`
	LogDir       string            `mapstructure:"log_dir" yaml:"log_dir"`
	Retention    int               `mapstructure:"retention" yaml:"retention"`
	MinFreeSpace int64             `mapstructure:"min_free_space" yaml:"min_free_space"`
	MinDumpLines int               `mapstructure:"min_dump_lines" yaml:"min_dump_lines"`
	TopTables    int               `mapstructure:"top_tables" yaml:"top_tables"`
	Compression  CompressionConfig `mapstructure:"compression" yaml:"compression"`
}

// S3Config configures replication to Amazon S3.
type S3Config struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
}

// GCSConfig configures replication to Google Cloud Storage.
type GCSConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	Prefix          string `mapstructure:"prefix" yaml:"prefix"`
}

// AzureConfig configures replication to Azure Blob Storage.
type AzureConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	AccountName string `mapstructure:"account_name" yaml:"account_name"`
	AccountKey  string `mapstructure:"account_key" yaml:"account_key"`
	Container   string `mapstructure:"container" yaml:"container"`
	Prefix      string `mapstructure:"prefix" yaml:"prefix"`
}

// EncryptionConfig enables at-rest encryption of replicated artifacts.
// Local artifacts stay plain so verify and restore work offline.
type EncryptionConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Passphrase string `mapstructure:"passphrase" yaml:"passphrase"`
}

// ReplicationConfig groups the optional offsite targets.
type ReplicationConfig struct {
	S3         S3Config         `mapstructure:"s3" yaml:"s3"`
	GCS        GCSConfig        `mapstructure:"gcs" yaml:"gcs"`
	Azure      AzureConfig      `mapstructure:"azure" yaml:"azure"`
	Encryption EncryptionConfig `mapstructure:"encryption" yaml:"encryption"`
}

// Config is the complete resolved configuration, built once at startup and
// passed explicitly into every operation.
type Config struct {
	Runtime     RuntimeConfig     `mapstructure:"runtime" yaml:"runtime"`
	App         AppConfig         `mapstructure:"app" yaml:"app"`
	Database    DatabaseConfig    `mapstructure:"database" yaml:"database"`
	Backup      BackupConfig      `mapstructure:"backup" yaml:"backup"`
	Replication ReplicationConfig `mapstructure:"replication" yaml:"replication"`
	Verbose     bool              `mapstructure:"verbose" yaml:"verbose"`
	Quiet       bool              `mapstructure:"quiet" yaml:"quiet"`
}

// SetDefaults registers defaults on a viper instance before unmarshalling.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("runtime.binary", "docker")
	v.SetDefault("runtime.exec_timeout", DefaultExecTimeout)
	v.SetDefault("app.container", "workflow-engine")
	v.SetDefault("app.cli", "flowctl")
	v.SetDefault("app.export_path", "/tmp/workflows_export.json")
	v.SetDefault("database.container", "workflow-db")
	v.SetDefault("database.name", "workflows")
	v.SetDefault("database.user", "workflows")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("backup.dir", "/var/backups/workflows")
	v.SetDefault("backup.log_dir", "/var/backups/workflows/logs")
	v.SetDefault("backup.retention", DefaultRetention)
	v.SetDefault("backup.min_free_space", DefaultMinFreeSpace)
	v.SetDefault("backup.min_dump_lines", DefaultMinDumpLines)
	v.SetDefault("backup.top_tables", DefaultTopTables)
	v.SetDefault("backup.compression.algorithm", "gzip")
	v.SetDefault("backup.compression.level", 0)
}

// Load resolves the configuration from the given viper instance.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved configuration before any operation runs.
func (c *Config) Validate() error {
	var problems []string

	if c.Runtime.Binary == "" {
		problems = append(problems, "runtime.binary is required")
	}
	if c.Runtime.ExecTimeout <= 0 {
		problems = append(problems, "runtime.exec_timeout must be positive")
	}
	if c.App.Container == "" {
		problems = append(problems, "app.container is required")
	}
	if c.App.CLI == "" {
		problems = append(problems, "app.cli is required")
	}
	if c.Database.Container == "" {
		problems = append(problems, "database.container is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.name is required")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Backup.Dir == "" {
		problems = append(problems, "backup.dir is required")
	}
	if c.Backup.Retention < 1 {
		problems = append(problems, "backup.retention must be at least 1")
	}
	if c.Backup.MinDumpLines < 1 {
		problems = append(problems, "backup.min_dump_lines must be at least 1")
	}
	switch c.Backup.Compression.Algorithm {
	case "gzip", "lz4", "zstd":
	default:
		problems = append(problems, fmt.Sprintf("backup.compression.algorithm %q is not one of gzip, lz4, zstd", c.Backup.Compression.Algorithm))
	}
	if c.Verbose && c.Quiet {
		problems = append(problems, "verbose and quiet are mutually exclusive")
	}
	if c.Replication.S3.Enabled && (c.Replication.S3.Bucket == "" || c.Replication.S3.Region == "") {
		problems = append(problems, "replication.s3 requires bucket and region")
	}
	if c.Replication.GCS.Enabled && c.Replication.GCS.Bucket == "" {
		problems = append(problems, "replication.gcs requires bucket")
	}
	if c.Replication.Azure.Enabled && (c.Replication.Azure.AccountName == "" || c.Replication.Azure.Container == "") {
		problems = append(problems, "replication.azure requires account_name and container")
	}
	if c.Replication.Encryption.Enabled && c.Replication.Encryption.Passphrase == "" {
		problems = append(problems, "replication.encryption requires a passphrase")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// EnsureDirs creates the backup and log directories when missing.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Backup.Dir, c.Backup.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
