package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/memohai/feishubridge/internal/media"
)

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download images and message resources",
	}
	cmd.AddCommand(
		newDownloadImageCmd(),
		newDownloadResourceCmd(),
	)
	return cmd
}

func newDownloadImageCmd() *cobra.Command {
	var (
		accountID string
		output    string
	)
	cmd := &cobra.Command{
		Use:   "image <image_key>",
		Short: "Download an image by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCLIEnv()
			if err != nil {
				return err
			}
			download, err := env.adapter.DownloadImage(cmd.Context(), accountID, args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, download)
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "account id")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newDownloadResourceCmd() *cobra.Command {
	var (
		accountID    string
		output       string
		resourceType string
	)
	cmd := &cobra.Command{
		Use:   "resource <message_id> <file_key>",
		Short: "Download a file or image attached to a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCLIEnv()
			if err != nil {
				return err
			}
			download, err := env.adapter.DownloadMessageResource(cmd.Context(), accountID, args[0], args[1], resourceType)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, download)
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "account id")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&resourceType, "type", "file", "resource type: image or file")
	return cmd
}

func writeOutput(stdout io.Writer, path string, download media.Download) error {
	if path == "" {
		_, err := stdout.Write(download.Data)
		return err
	}
	if err := os.WriteFile(path, download.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %d bytes (%s) to %s\n", len(download.Data), download.ContentType, path)
	return nil
}
