package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/entsync/internal/config"
	"github.com/alexanderramin/entsync/internal/devops"
	"github.com/alexanderramin/entsync/internal/graph"
	"github.com/alexanderramin/entsync/internal/reconcile"
)

func newRunCmd(app *App) *cobra.Command {
	var (
		configPath      string
		organization    string
		pat             string
		tenantID        string
		clientID        string
		clientSecret    string
		dryRun          bool
		deleteDirectory bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a single reconciliation pass over the organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// Flags beat the file and environment layers.
			if organization != "" {
				cfg.Organization = organization
			}
			if pat != "" {
				cfg.PersonalAccessToken = pat
			}
			if tenantID != "" {
				cfg.TenantID = tenantID
			}
			if clientID != "" {
				cfg.ClientID = clientID
			}
			if clientSecret != "" {
				cfg.ClientSecret = clientSecret
			}
			if cmd.Flags().Changed("dry-run") {
				cfg.DryRun = dryRun
			}
			if cmd.Flags().Changed("delete-directory-identities") {
				cfg.DeleteDirectoryIdentities = deleteDirectory
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			conn := app.NewConnection(devops.Config{
				BaseURL:             cfg.DevOpsBaseURL,
				Organization:        cfg.Organization,
				PersonalAccessToken: cfg.PersonalAccessToken,
				Timeout:             cfg.HTTPTimeout,
				MaxRetries:          cfg.MaxRetries,
				RequestsPerSecond:   cfg.RequestsPerSecond,
				DryRun:              cfg.DryRun,
			}, app.Logger)

			dir := app.NewDirectory(graph.Config{
				BaseURL:           cfg.GraphBaseURL,
				OAuthEndpoint:     cfg.OAuthEndpoint,
				TenantID:          cfg.TenantID,
				ClientID:          cfg.ClientID,
				ClientSecret:      cfg.ClientSecret,
				Timeout:           cfg.HTTPTimeout,
				MaxRetries:        cfg.MaxRetries,
				RequestsPerSecond: cfg.RequestsPerSecond,
				DryRun:            cfg.DryRun,
			}, app.Logger)

			reconciler := reconcile.New(conn, dir, reconcile.Options{
				DaysBeforeDeletion:        cfg.DaysBeforeDeletion,
				DaysBeforeDemotion:        cfg.DaysBeforeDemotion,
				DaysGraceAfterCreation:    cfg.DaysGraceAfterCreation,
				GroupPrefix:               cfg.GroupPrefix,
				GroupSuffix:               cfg.GroupSuffix,
				ExcludedNameWords:         config.SplitList(cfg.ExcludedNameWords),
				ExcludedPrincipals:        config.SplitList(cfg.ExcludedPrincipals),
				DeleteDirectoryIdentities: cfg.DeleteDirectoryIdentities,
			}, reconcile.NewLogObserver(app.Logger))

			sum, err := reconciler.Run(context.Background())
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out,
				"Processed %d users (%d excluded): %d deleted, %d demoted, %d converged, %d compliant, %d failures\n",
				sum.UsersFetched, sum.UsersExcluded, sum.Deleted, sum.Demoted,
				sum.Converged, sum.NoAction, sum.Failures)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a TOML settings file")
	cmd.Flags().StringVarP(&organization, "organization", "o", "", "Azure DevOps organization name")
	cmd.Flags().StringVarP(&pat, "pat", "p", "", "Personal access token (project collection administrator)")
	cmd.Flags().StringVarP(&tenantID, "tenant-id", "d", "", "Directory (tenant) id of the identity directory")
	cmd.Flags().StringVarP(&clientID, "client-id", "a", "", "Application id of the directory app registration")
	cmd.Flags().StringVarP(&clientSecret, "client-secret", "s", "", "Client secret of the directory app registration")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "t", false, "Log mutations without performing them")
	cmd.Flags().BoolVar(&deleteDirectory, "delete-directory-identities", false, "Also delete stale identities from the directory")

	return cmd
}
