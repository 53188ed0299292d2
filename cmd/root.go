package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"workflow-backup/internal/config"
	"workflow-backup/internal/display"
	"workflow-backup/internal/logging"
	"workflow-backup/internal/runtime"
)

var cfgFile string

var (
	flagVerbose bool
	flagQuiet   bool
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "workflow-backup",
	Short: "Back up and restore a containerized workflow engine and its database",
	Long: `workflow-backup captures timestamped backup sets of a containerized
workflow engine: its workflow definitions (exported as JSON by the CLI
embedded in the engine container) and a compressed logical dump of its
database. Sets are validated, described by a manifest, rotated by a
fixed retention count, and restorable by timestamp key.

Examples:
  # Create a backup set
  workflow-backup backup

  # See what a backup would do without touching anything
  workflow-backup backup --dry-run

  # Check every existing backup set
  workflow-backup verify

  # Restore a specific set (interactive confirmation required)
  workflow-backup restore 20260823_031500`,
	SilenceUsage: true,
}

// Execute runs the root command. Any error has already been printed by the
// failing subcommand.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.workflow-backup.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable color output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".workflow-backup")
	}

	viper.SetEnvPrefix("WORKFLOW_BACKUP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && flagVerbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves and validates the configuration once; every
// operation receives it explicitly.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if flagVerbose {
		cfg.Verbose = true
	}
	if flagQuiet {
		cfg.Quiet = true
	}
	if cfg.Verbose && cfg.Quiet {
		return nil, fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}
	return cfg, nil
}

func logLevel(cfg *config.Config) logging.LogLevel {
	switch {
	case cfg.Quiet:
		return logging.LogLevelQuiet
	case cfg.Verbose:
		return logging.LogLevelVerbose
	default:
		return logging.LogLevelNormal
	}
}

func newDisplay(cfg *config.Config) *display.Display {
	return display.New(cfg.Quiet, flagNoColor)
}

func newRuntime(cfg *config.Config, logger *logging.Logger) runtime.Runtime {
	return runtime.NewDockerRuntime(cfg.Runtime.Binary, cfg.Runtime.ExecTimeout, logger)
}

// Version information (set by main)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// SetVersionInfo sets the version information from build flags.
func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("workflow-backup version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
		},
	}
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Generate a sample configuration file for use with the --config flag.

Examples:
  workflow-backup config > .workflow-backup.yaml`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(sampleConfig)
		},
	}
}

const sampleConfig = `# workflow-backup configuration file

# Container runtime used for every external invocation.
runtime:
  binary: docker          # docker-compatible CLI (docker, podman)
  exec_timeout: 5m        # deadline applied to each external call

# Workflow engine container and its embedded CLI.
app:
  container: workflow-engine
  cli: flowctl
  export_path: /tmp/workflows_export.json

# Database container and dump credentials. host/port are only used by the
# manifest's table statistics probe.
database:
  container: workflow-db
  name: workflows
  user: workflows
  password: ""            # prefer WORKFLOW_BACKUP_DATABASE_PASSWORD
  host: 127.0.0.1
  port: 3306

# Destination layout and retention.
backup:
  dir: /var/backups/workflows
  log_dir: /var/backups/workflows/logs
  retention: 7            # newest N sets survive rotation
  min_free_space: 52428800   # bytes required free before a backup starts
  min_dump_lines: 10      # truncation heuristic for the logical dump
  top_tables: 10          # largest tables listed in the manifest
  compression:
    algorithm: gzip       # gzip, lz4, or zstd
    level: 0              # 0 selects the algorithm default

# Optional best-effort offsite replication of each new set.
replication:
  encryption:
    enabled: false
    passphrase: ""        # prefer WORKFLOW_BACKUP_REPLICATION_ENCRYPTION_PASSPHRASE
  s3:
    enabled: false
    bucket: ""
    region: ""
    access_key: ""
    secret_key: ""
    prefix: workflow-backups
  gcs:
    enabled: false
    bucket: ""
    credentials_file: ""
    prefix: workflow-backups
  azure:
    enabled: false
    account_name: ""
    account_key: ""
    container: ""
    prefix: workflow-backups
`

func init() {
	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newConfigCommand())
}
