package cli

import (
	"fmt"

	"devsess/internal/config"
	"devsess/internal/logging"

	"github.com/spf13/cobra"
)

func newSessionCommand(flags *rootFlags, logger *logging.AppLogger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage session workspaces",
	}

	cmd.AddCommand(newSessionCreateCommand(flags, logger))
	cmd.AddCommand(newSessionListCommand(flags, logger))
	cmd.AddCommand(newSessionRemoveCommand(flags, logger))
	cmd.AddCommand(newSessionInitCommand(flags))

	return cmd
}

func newSessionCreateCommand(flags *rootFlags, logger *logging.AppLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a session workspace from the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, reg, err := newManager(flags, logger)
			if err != nil {
				return err
			}
			defer reg.Close()

			s, err := mgr.Create(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created session %s\n", s.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "  id:        %s\n", s.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "  workspace: %s\n", s.Workspace)
			fmt.Fprintf(cmd.OutOrStdout(), "  branch:    %s\n", s.Branch)
			return nil
		},
	}
}

func newSessionListCommand(flags *rootFlags, logger *logging.AppLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the project's active sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, reg, err := newManager(flags, logger)
			if err != nil {
				return err
			}
			defer reg.Close()

			sessions, err := mgr.List()
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active sessions")
				return nil
			}

			for _, s := range sessions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  %s\n",
					s.ID, s.Name, s.Branch, s.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newSessionRemoveCommand(flags *rootFlags, logger *logging.AppLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name-or-id>",
		Short: "Delete a session workspace and its registry entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, reg, err := newManager(flags, logger)
			if err != nil {
				return err
			}
			defer reg.Close()

			if err := mgr.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session %s\n", args[0])
			return nil
		},
	}
}

func newSessionInitCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter .devsess.yaml in the project directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc := config.ProjectConfig{
				Rules: []config.FileRule{
					{Source: ".env", Action: config.ActionEncrypt},
				},
			}
			if err := config.WriteProject(flags.project, pc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", config.ProjectFileName)
			return nil
		},
	}
}
