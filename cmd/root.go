package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vietdv277/bucketinv/internal/config"
	"github.com/vietdv277/bucketinv/internal/logging"
)

var (
	// Global flags
	cfgFile string
	envFile string

	cfg    *config.Config
	logger zerolog.Logger
)

// flagKeys maps flag names to config keys
var flagKeys = map[string]string{
	"provider":        "provider",
	"output-dir":      "output_dir",
	"profile":         "profile",
	"project":         "project",
	"region":          "region",
	"endpoint":        "endpoint",
	"path-style":      "path_style",
	"log-level":       "log_level",
	"log-format":      "log_format",
	"flush-threshold": "flush_threshold",
	"page-size":       "page_size",
	"max-concurrency": "max_concurrency",
	"bucket-timeout":  "bucket_timeout",
	"include":         "include",
	"exclude":         "exclude",
}

var rootCmd = &cobra.Command{
	Use:   "bucketinv",
	Short: "bucketinv - resumable object storage bucket inventory",
	Long: `bucketinv lists every object of every bucket visible to the current
credentials (S3, Cloud Storage or MinIO) and writes the metadata (bucket, key, last modified, size) to
chunked CSV files. Progress is checkpointed after every chunk, so an
interrupted run picks up where it stopped.

Output files (in --output-dir):
  fileinfo_<bucket>_<n>.csv              object metadata, chunk n
  next_continuation_token_<bucket>.txt   resume position
  manifest_<bucket>.yaml                 per-bucket progress
  fileinfo_<bucket>_<n>_exception.csv    written when a bucket fails

Examples:
  bucketinv                              # inventory every bucket
  bucketinv run --include 'prod-*'       # only matching buckets
  bucketinv run --select                 # pick buckets interactively
  bucketinv status                       # show progress per bucket
  bucketinv whoami                       # show cloud identity
  bucketinv --provider gcp --project p   # inventory Cloud Storage
  bucketinv --provider minio --endpoint http://localhost:9000`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	Args:              cobra.NoArgs,
	RunE:              runInventory,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/bucketinv/config.yaml)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file to load")
	flags.String("provider", "aws", "storage provider (aws, gcp, minio)")
	flags.StringP("output-dir", "o", ".", "directory for chunks, checkpoints and manifests")
	flags.StringP("profile", "p", "", "AWS profile to use")
	flags.String("project", "", "GCP project whose buckets are listed")
	flags.StringP("region", "r", "", "region to use")
	flags.String("endpoint", "", "custom endpoint (MinIO, LocalStack, fake-gcs-server)")
	flags.Bool("path-style", false, "use path-style S3 addressing")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")

	addRunFlags(rootCmd.Flags())
}

// addRunFlags registers the inventory flags on fs
func addRunFlags(fs *pflag.FlagSet) {
	fs.Int("flush-threshold", 500000, "records per output chunk")
	fs.Int("page-size", 1000, "keys requested per listing page (max 1000)")
	fs.Int("max-concurrency", 0, "buckets listed at once (0 = all)")
	fs.Duration("bucket-timeout", 0, "deadline per bucket (0 = none)")
	fs.StringSlice("include", nil, "bucket name glob to include (repeatable)")
	fs.StringSlice("exclude", nil, "bucket name glob to exclude (repeatable)")
	fs.Bool("select", false, "pick buckets interactively before listing")
}

func initConfig(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()

	// Bind the flags of the command being executed
	flags := cmd.Flags()
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	loaded, err := config.Load(v, cfgFile, envFile)
	if err != nil {
		return err
	}
	cfg = loaded

	logger = logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	return nil
}
