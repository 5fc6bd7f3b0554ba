package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vietdv277/bucketinv/internal/aws"
	"github.com/vietdv277/bucketinv/internal/config"
	"github.com/vietdv277/bucketinv/internal/gcp"
	"github.com/vietdv277/bucketinv/internal/ui"
	"github.com/vietdv277/bucketinv/pkg/provider"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show current cloud identity",
	Long: `Display the identity the inventory runs as.

For AWS this is equivalent to 'aws sts get-caller-identity'. For GCP the
Application Default Credentials are refreshed and described.

Examples:
  bucketinv whoami
  bucketinv whoami --profile prod
  bucketinv whoami --provider gcp`,
	Args: cobra.NoArgs,
	RunE: runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	switch cfg.Provider {
	case config.ProviderAWS:
		return whoamiAWS(cmd, out)
	case config.ProviderGCP:
		return whoamiGCP(cmd, out)
	default:
		return fmt.Errorf("whoami for %s: %w", cfg.Provider, provider.ErrNotSupported)
	}
}

func whoamiAWS(cmd *cobra.Command, out io.Writer) error {
	ctx := cmd.Context()

	client, err := newAWSClient(ctx)
	if err != nil {
		return err
	}

	identity, err := aws.GetCallerIdentity(ctx, client.STS)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.HeaderStyle.Render("AWS Identity"))
	fmt.Fprintln(out, ui.MutedStyle.Render("───────────────────────────────"))
	if client.Profile() != "" {
		fmt.Fprintf(out, "  Profile: %s\n", client.Profile())
	}
	if client.Region() != "" {
		fmt.Fprintf(out, "  Region:  %s\n", client.Region())
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Account: %s\n", identity.Account)
	fmt.Fprintf(out, "  User:    %s\n", identity.UserID)
	fmt.Fprintf(out, "  ARN:     %s\n", ui.MutedStyle.Render(identity.Arn))
	fmt.Fprintln(out)

	return nil
}

func whoamiGCP(cmd *cobra.Command, out io.Writer) error {
	client, err := newGCPClient(cmd.Context())
	if err != nil {
		return err
	}

	identity, err := gcp.GetCallerIdentity(client.Credentials())
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.HeaderStyle.Render("GCP Identity"))
	fmt.Fprintln(out, ui.MutedStyle.Render("───────────────────────────────"))
	if client.Project() != "" {
		fmt.Fprintf(out, "  Project: %s\n", client.Project())
	}
	fmt.Fprintln(out)
	if identity.Email != "" {
		fmt.Fprintf(out, "  Account: %s\n", identity.Email)
	}
	if identity.TokenType != "" {
		fmt.Fprintf(out, "  Type:    %s\n", ui.MutedStyle.Render(identity.TokenType))
	}
	fmt.Fprintln(out)

	return nil
}
