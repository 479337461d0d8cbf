package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/entsync/internal/devops"
	"github.com/alexanderramin/entsync/internal/graph"
)

// App holds the dependencies CLI commands need. The client constructors are
// swappable so command tests can inject fakes.
type App struct {
	Logger        *slog.Logger
	Out           io.Writer
	NewConnection func(devops.Config, *slog.Logger) devops.Connection
	NewDirectory  func(graph.Config, *slog.Logger) graph.Directory
}

// NewRootCmd creates the top-level "entsync" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:          "entsync",
		Short:        "Reconcile work-tracking license entitlements against the identity directory",
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd(app))

	return root
}
