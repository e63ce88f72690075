package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/marmos91/keepfs/pkg/filestore"
	"github.com/spf13/cobra"
)

var (
	createOpts    filestore.CreateOptions
	createContent contentFlags
	updateContent contentFlags
	appendContent contentFlags
	readOutput    string
	deleteForce   bool
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Register a new file",
	Long: `Register a new file under <name> and write its initial content.

The file is stored at <dir>/<name><ext>. Encryption and compression cannot
be combined.

Examples:
  # Hashed plain file in the base directory
  keepfs create notes --hash --content 'hello'

  # Encrypted file from a local file
  keepfs create secrets --encrypt --hash --file ./secrets.env

  # Compressed file in a sub directory, content from stdin
  tar c ./logs | keepfs create logs --compress --dir archive --ext .tar.gz`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := createContent.read(cmd)
		if err != nil {
			return err
		}
		return withStore(cmd, false, func(ctx context.Context, s *session) error {
			if err := s.store.CreateFile(ctx, args[0], data, createOpts); err != nil {
				return err
			}
			info, err := s.store.Stat(ctx, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s at %s (%s)\n", info.Name, info.Path, info.Mode)
			return nil
		})
	},
}

var readCmd = &cobra.Command{
	Use:   "read <name>",
	Short: "Print a file's content",
	Long: `Print the content of a registered file, decrypted and decompressed.

If the file no longer matches its hash, the content is still printed and
the command exits with FILE_CORRUPTED.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, false, func(ctx context.Context, s *session) error {
			data, err := s.store.ReadFile(ctx, args[0])
			if data == nil {
				return err
			}
			if writeErr := writeOutput(cmd, data); writeErr != nil {
				return writeErr
			}
			return err
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Replace a file's content",
	Long: `Replace the content of a registered file.

Encrypted files get a fresh key. Hashed files get a new hash.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := updateContent.read(cmd)
		if err != nil {
			return err
		}
		return withStore(cmd, false, func(ctx context.Context, s *session) error {
			return s.store.UpdateFile(ctx, args[0], data)
		})
	},
}

var appendCmd = &cobra.Command{
	Use:   "append <name>",
	Short: "Append to a file",
	Long: `Append content to a registered file.

A hashed file is verified first; if it no longer matches its hash the
append is refused with FILE_CORRUPTED and the file is left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := appendContent.read(cmd)
		if err != nil {
			return err
		}
		return withStore(cmd, false, func(ctx context.Context, s *session) error {
			return s.store.AppendFile(ctx, args[0], data)
		})
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <name> <directory>",
	Short: "Move a file to another directory",
	Long: `Move a registered file to <directory>, keeping its file name.

The directory must already exist. Use "" for the base directory.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, false, func(ctx context.Context, s *session) error {
			if err := s.store.ChangeFilePath(ctx, args[0], args[1]); err != nil {
				return err
			}
			entry, _ := s.store.Entry(args[0])
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", args[0], entry.Path)
			return nil
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <name>...",
	Short: "Verify files against their hash",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, false, func(ctx context.Context, s *session) error {
			var failed int
			for _, name := range args {
				err := s.store.CheckFileHash(ctx, name)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, filestore.CodeOf(err))
				if err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed the check", failed, len(args))
			}
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a file and its registration",
	Long: `Delete a registered file and its metadata.

If the file is already gone from storage, delete fails with
FILE_DOES_NOT_EXIST. Use --force to drop the registration anyway.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, false, func(ctx context.Context, s *session) error {
			err := s.store.DeleteFile(ctx, args[0])
			if deleteForce && filestore.CodeOf(err) == filestore.ErrFileDoesNotExist {
				err = s.store.Forget(ctx, args[0])
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		})
	},
}

func init() {
	createCmd.Flags().StringVarP(&createOpts.Directory, "dir", "d", "", "Directory to place the file in (default: base directory)")
	createCmd.Flags().StringVarP(&createOpts.Extension, "ext", "e", "", "File extension (default from config)")
	createCmd.Flags().BoolVar(&createOpts.Encrypt, "encrypt", false, "Encrypt the file at rest")
	createCmd.Flags().BoolVar(&createOpts.Compress, "compress", false, "Compress the file at rest")
	createCmd.Flags().BoolVar(&createOpts.Hash, "hash", false, "Keep a hash to detect modification")
	createContent.register(createCmd)

	updateContent.register(updateCmd)
	appendContent.register(appendCmd)

	readCmd.Flags().StringVarP(&readOutput, "output", "o", "", "Write content to a local file instead of stdout")

	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Drop the registration even if the file is gone")
}

func writeOutput(cmd *cobra.Command, data []byte) error {
	if readOutput == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(readOutput, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", readOutput, err)
	}
	return nil
}
