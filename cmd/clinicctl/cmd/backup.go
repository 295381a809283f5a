package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/templui/docclinic/internal/app"
	"github.com/templui/docclinic/internal/service"
	"github.com/templui/docclinic/internal/storage"
)

func BackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the user store to S3 (or ./data/backups without S3_BUCKET)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackups(cmd, func(backups *service.BackupService, _ storage.Storage) error {
				key, err := backups.Backup(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "backup written: %s\n", key)
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List snapshots, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackups(cmd, func(backups *service.BackupService, _ storage.Storage) error {
				keys, err := backups.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, key := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), key)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <key>",
		Short: "Replace the user store with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackups(cmd, func(backups *service.BackupService, _ storage.Storage) error {
				n, err := backups.Restore(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "restored %d users from %s\n", n, args[0])
				return nil
			})
		},
	})

	var expiry time.Duration
	urlCmd := &cobra.Command{
		Use:   "url <key>",
		Short: "Print a temporary download link for a snapshot (S3 only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackups(cmd, func(_ *service.BackupService, store storage.Storage) error {
				s3Store, ok := store.(*storage.S3Storage)
				if !ok {
					return fmt.Errorf("download links need S3_BUCKET to be set")
				}
				link, err := s3Store.PresignedURL(cmd.Context(), args[0], expiry)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), link)
				return nil
			})
		},
	}
	urlCmd.Flags().DurationVar(&expiry, "expiry", time.Hour, "link lifetime")
	cmd.AddCommand(urlCmd)

	return cmd
}

func withBackups(cmd *cobra.Command, fn func(backups *service.BackupService, store storage.Storage) error) error {
	cfg, repo, err := openUserStore()
	if err != nil {
		return err
	}
	defer repo.Close()

	store, err := app.BackupStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	return fn(service.NewBackupService(repo, store), store)
}
