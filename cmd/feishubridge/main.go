package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "feishubridge",
		Short: "Deliver agent replies and media to Feishu / Lark",
		Long: `feishubridge sends agent reply fragments, attachments and typing indicators
to Feishu or Lark chats, and downloads images and message resources.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("CONFIG_PATH"), "config file (TOML, or YAML by extension)")

	rootCmd.AddCommand(
		newServeCmd(),
		newSendCmd(),
		newDownloadCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
