package cli

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"devsess/internal/logging"
	"devsess/pkg/securefs"

	"github.com/spf13/cobra"
)

func newCopyCommand(flags *rootFlags, logger *logging.AppLogger) *cobra.Command {
	var (
		encrypt  bool
		preserve bool
		mode     string
	)

	cmd := &cobra.Command{
		Use:   "copy <source> <destination>",
		Short: "Copy a file within the project boundary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := resolveProject(flags)
			if err != nil {
				return err
			}
			copier, err := newCopier(eff, logger)
			if err != nil {
				return err
			}

			opts := securefs.DefaultCopyOptions()
			opts.Encrypt = encrypt
			opts.PreservePermissions = preserve
			if mode != "" {
				parsed, err := parseMode(mode)
				if err != nil {
					return err
				}
				opts.Permissions = &parsed
			}

			result, err := copier.CopyFile(args[0], args[1], opts)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Copied %s -> %s\n", result.Source, result.Destination)
			if result.Key != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Encryption key (store it safely, it is not persisted):\n%s\n", result.Key)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "Encrypt the destination (prints the generated key)")
	cmd.Flags().BoolVar(&preserve, "preserve-permissions", false, "Copy the source's mode instead of applying the policy")
	cmd.Flags().StringVar(&mode, "mode", "", "Explicit octal file mode for the destination (e.g. 640)")

	return cmd
}

func newLinkCommand(flags *rootFlags, logger *logging.AppLogger) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "link <source> <link>",
		Short: "Create a symlink within the project boundary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := resolveProject(flags)
			if err != nil {
				return err
			}
			copier, err := newCopier(eff, logger)
			if err != nil {
				return err
			}

			result, err := copier.CreateSymlink(args[0], args[1], force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked %s -> %s\n", result.Destination, result.Source)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing symlink at the link location")

	return cmd
}

func newEncryptCommand(flags *rootFlags, logger *logging.AppLogger) *cobra.Command {
	var keyB64 string

	cmd := &cobra.Command{
		Use:   "encrypt <file>",
		Short: "Encrypt a file in place (AES-256-GCM)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := resolveProject(flags)
			if err != nil {
				return err
			}
			copier, err := newCopier(eff, logger)
			if err != nil {
				return err
			}

			var key []byte
			if keyB64 != "" {
				key, err = base64.StdEncoding.DecodeString(keyB64)
				if err != nil {
					return fmt.Errorf("key is not valid base64: %w", err)
				}
			}

			out, err := copier.EncryptFile(args[0], key)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Encrypted %s\n", args[0])
			if keyB64 == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Encryption key (store it safely, it is not persisted):\n%s\n", out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&keyB64, "key", "", "Base64 256-bit key (generated when omitted)")

	return cmd
}

func newDecryptCommand(flags *rootFlags, logger *logging.AppLogger) *cobra.Command {
	var (
		keyB64    string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "decrypt <file>",
		Short: "Decrypt a file in place",
		Long: `Decrypt a previously encrypted file in place.

The key comes from --key, or from the keystore when --session names the
session whose rule encrypted the file. With --session the file argument is
relative to the session workspace.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := resolveProject(flags)
			if err != nil {
				return err
			}
			copier, err := newCopier(eff, logger)
			if err != nil {
				return err
			}

			path := args[0]
			key := keyB64
			if key == "" {
				if sessionID == "" {
					return fmt.Errorf("either --key or --session is required")
				}
				mgr, reg, err := newManager(flags, logger)
				if err != nil {
					return err
				}
				defer reg.Close()

				s, err := mgr.Get(sessionID)
				if err != nil {
					return err
				}
				key, err = mgr.Key(s.ID, args[0])
				if err != nil {
					return fmt.Errorf("no stored key for %s in session %s: %w", args[0], s.Name, err)
				}
				path = filepath.Join(s.Workspace, args[0])
			}

			if _, err := copier.DecryptFile(path, key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Decrypted %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyB64, "key", "", "Base64 256-bit key")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session name or ID whose keystore holds the key")

	return cmd
}

// parseMode parses an octal mode string like "640".
func parseMode(s string) (os.FileMode, error) {
	var parsed uint32
	if _, err := fmt.Sscanf(s, "%o", &parsed); err != nil {
		return 0, fmt.Errorf("invalid file mode %q: %w", s, err)
	}
	return os.FileMode(parsed), nil
}
