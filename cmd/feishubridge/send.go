package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memohai/feishubridge/internal/channel"
	"github.com/memohai/feishubridge/internal/channel/adapters/feishu"
)

func newSendCmd() *cobra.Command {
	var (
		accountID string
		to        string
		replyTo   string
		text      string
		mediaURLs []string
		mentions  []string
		kind      string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one reply fragment (text and/or media)",
		Example: `  feishubridge send --to chat_id:oc_xxx --text "build finished"
  feishubridge send --reply-to om_xxx --media ./report.pdf --media https://example.com/chart.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(text) == "" && len(mediaURLs) == 0 {
				return fmt.Errorf("nothing to send: pass --text or --media")
			}
			env, err := newCLIEnv()
			if err != nil {
				return err
			}
			dispatcher, err := env.adapter.NewReplyDispatcher(feishu.ReplyDispatcherOptions{
				AccountID:        accountID,
				To:               to,
				ReplyToMessageID: replyTo,
				Mentions:         parseMentions(mentions),
			})
			if err != nil {
				return err
			}
			fragment := channel.ReplyFragment{
				Kind:    channel.ReplyKind(kind),
				Payload: channel.ReplyPayload{Text: text, MediaURLs: mediaURLs},
			}
			if err := env.sequencer.Run(cmd.Context(), dispatcher, channel.Fragments([]channel.ReplyFragment{fragment})); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account id (default \"default\")")
	cmd.Flags().StringVar(&to, "to", "", "receive target, e.g. chat_id:oc_xxx or ou_xxx")
	cmd.Flags().StringVar(&replyTo, "reply-to", "", "message id to reply to")
	cmd.Flags().StringVar(&text, "text", "", "reply text (markdown)")
	cmd.Flags().StringArrayVar(&mediaURLs, "media", nil, "media URL or local path, repeatable")
	cmd.Flags().StringArrayVar(&mentions, "mention", nil, "open_id[:name] to @-mention, repeatable")
	cmd.Flags().StringVar(&kind, "kind", string(channel.ReplyKindFinal), "fragment kind: tool, block or final")
	return cmd
}

// parseMentions reads "ou_xxx" or "ou_xxx:Display Name" items.
func parseMentions(raw []string) []channel.Mention {
	items := make([]channel.Mention, 0, len(raw))
	for _, item := range raw {
		id, name, _ := strings.Cut(strings.TrimSpace(item), ":")
		if strings.TrimSpace(id) == "" {
			continue
		}
		items = append(items, channel.Mention{OpenID: strings.TrimSpace(id), Name: strings.TrimSpace(name)})
	}
	return items
}
