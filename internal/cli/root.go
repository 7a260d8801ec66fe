// Package cli wires the devsess commands: session management plus direct
// file operations, all confined to the current project's boundary.
package cli

import (
	"fmt"
	"os"

	"devsess/internal/config"
	"devsess/internal/keystore"
	"devsess/internal/logging"
	"devsess/internal/registry"
	"devsess/internal/session"
	"devsess/pkg/securefs"

	"github.com/spf13/cobra"
)

// Version is the current version of devsess
const Version = "1.0.0"

type rootFlags struct {
	debug   bool
	project string
}

// NewRootCommand creates the root cobra command for devsess.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}
	logger := logging.GetDefault()

	cmd := &cobra.Command{
		Use:   "devsess",
		Short: "devsess - isolated session workspaces for development projects",
		Long: `devsess manages isolated development sessions: per-session git workspaces
assembled from a project repository, with configuration and secret files
selectively copied, symlinked, or encrypted into each session.

Every file operation is confined to the project boundary; paths that would
escape it are rejected before anything touches the disk.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.debug {
				logger.SetDebug(true)
			}
		},
	}

	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVarP(&flags.project, "project", "C", ".", "Project directory (searched upward for .devsess.yaml)")

	cmd.AddCommand(newSessionCommand(flags, logger))
	cmd.AddCommand(newCopyCommand(flags, logger))
	cmd.AddCommand(newLinkCommand(flags, logger))
	cmd.AddCommand(newEncryptCommand(flags, logger))
	cmd.AddCommand(newDecryptCommand(flags, logger))

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// resolveProject merges the user and project configuration for the chosen
// project directory.
func resolveProject(flags *rootFlags) (*config.Effective, error) {
	eff, err := config.Resolve(flags.project)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project configuration: %w", err)
	}
	return eff, nil
}

// newCopier builds the file operations layer for the project, with audit
// records going to the application logger.
func newCopier(eff *config.Effective, logger *logging.AppLogger) (*securefs.FileCopier, error) {
	sink := securefs.LogSink{Logger: logger.Charm()}
	copier, err := securefs.NewFileCopier(eff.ProjectRoot, sink)
	if err != nil {
		return nil, fmt.Errorf("failed to open project %s: %w", eff.ProjectRoot, err)
	}
	return copier, nil
}

// newManager builds the session manager with the real registry and system
// keyring.
func newManager(flags *rootFlags, logger *logging.AppLogger) (*session.Manager, *registry.Registry, error) {
	eff, err := resolveProject(flags)
	if err != nil {
		return nil, nil, err
	}

	reg, err := registry.Open()
	if err != nil {
		return nil, nil, err
	}

	sink := securefs.LogSink{Logger: logger.Charm()}
	mgr, err := session.NewManager(eff, reg, keystore.NewKeyringStore(), logger, sink)
	if err != nil {
		_ = reg.Close()
		return nil, nil, err
	}
	return mgr, reg, nil
}
