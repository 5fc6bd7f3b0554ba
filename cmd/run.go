package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vietdv277/bucketinv/internal/aws"
	"github.com/vietdv277/bucketinv/internal/config"
	"github.com/vietdv277/bucketinv/internal/gcp"
	"github.com/vietdv277/bucketinv/internal/inventory"
	"github.com/vietdv277/bucketinv/internal/minio"
	"github.com/vietdv277/bucketinv/internal/ui"
	"github.com/vietdv277/bucketinv/pkg/provider"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "List every pending bucket into chunked CSV files",
	Long: `Discover the buckets visible to the current credentials and list each one
that has not completed yet. Buckets are listed concurrently; a failure in one
bucket never stops the others. Interrupted buckets resume from their last
checkpoint on the next run.

Examples:
  bucketinv run
  bucketinv run -o /data/inventory --flush-threshold 100000
  bucketinv run --include 'logs-*' --exclude 'logs-tmp'
  bucketinv run --endpoint http://localhost:9000 --path-style
  bucketinv run --provider gcp --project my-project
  bucketinv run --provider minio --endpoint http://localhost:9000`,
	Args: cobra.NoArgs,
	RunE: runInventory,
}

func init() {
	addRunFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

func runInventory(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := newStorageProvider(ctx)
	if err != nil {
		return err
	}

	opts := inventory.Options{
		OutputDir:      cfg.OutputDir,
		Threshold:      cfg.FlushThreshold,
		PageSize:       cfg.PageSize,
		MaxConcurrency: cfg.MaxConcurrency,
		BucketTimeout:  cfg.BucketTimeout,
		Include:        cfg.Include,
		Exclude:        cfg.Exclude,
		Logger:         logger,
	}
	if selectBuckets, _ := cmd.Flags().GetBool("select"); selectBuckets {
		opts.Select = ui.SelectBuckets
	}

	summary, err := inventory.NewOrchestrator(storage, afero.NewOsFs(), opts).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), ui.RenderRunSummary(summary))

	if summary.HasFailures() {
		return fmt.Errorf("%d bucket(s) failed: %s", len(summary.Failed), strings.Join(summary.FailedBuckets(), ", "))
	}
	return nil
}

// newStorageProvider builds the listing backend selected by the provider key
func newStorageProvider(ctx context.Context) (provider.StorageProvider, error) {
	switch cfg.Provider {
	case config.ProviderGCP:
		client, err := newGCPClient(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("project", client.Project()).Msg("using Cloud Storage")
		return gcp.NewStorageProvider(client.Storage, client.Project(), client.Region()), nil

	case config.ProviderMinIO:
		client, err := minio.NewClient(cfg.Endpoint,
			minio.WithRegion(cfg.Region),
			minio.WithPathStyle(cfg.PathStyle),
		)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("endpoint", client.Endpoint()).Msg("using MinIO")
		return minio.NewProvider(client.Core, client.Region()), nil

	default:
		client, err := newAWSClient(ctx)
		if err != nil {
			return nil, err
		}
		if identity, err := aws.GetCallerIdentity(ctx, client.STS); err != nil {
			logger.Warn().Err(err).Msg("could not resolve caller identity")
		} else {
			logger.Info().
				Str("account", identity.Account).
				Str("arn", identity.Arn).
				Msg("authenticated")
		}
		return aws.NewS3Provider(client.S3, client.Region()), nil
	}
}

// newAWSClient builds the AWS client from the resolved configuration
func newAWSClient(ctx context.Context) (*aws.Client, error) {
	client, err := aws.NewClient(ctx,
		aws.WithProfile(cfg.Profile),
		aws.WithRegion(cfg.Region),
		aws.WithEndpoint(cfg.Endpoint),
		aws.WithPathStyle(cfg.PathStyle),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS client: %w", err)
	}
	return client, nil
}

// newGCPClient builds the Cloud Storage client from the resolved configuration
func newGCPClient(ctx context.Context) (*gcp.Client, error) {
	client, err := gcp.NewClient(ctx,
		gcp.WithProject(cfg.Project),
		gcp.WithRegion(cfg.Region),
		gcp.WithEndpoint(cfg.Endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP client: %w", err)
	}
	return client, nil
}
