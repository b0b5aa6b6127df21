package feishu

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/memohai/feishubridge/internal/channel"
)

var cardHeadingPrefix = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)

// buildMarkdownCard renders markdown into a single-element interactive card.
func buildMarkdownCard(markdown string, mentions []channel.Mention) (string, error) {
	body := cardMentionPrefix(mentions) + processCardMarkdown(markdown)
	card := map[string]any{
		"config": map[string]any{
			"wide_screen_mode": true,
			"enable_forward":   true,
		},
		"elements": []map[string]any{
			{
				"tag":     "markdown",
				"content": body,
			},
		},
	}
	content, err := sonic.MarshalString(card)
	if err != nil {
		return "", fmt.Errorf("marshal card content: %w", err)
	}
	return content, nil
}

// processCardMarkdown turns ATX headings into bold lines, which card
// markdown does not render.
func processCardMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if parts := cardHeadingPrefix.FindStringSubmatch(line); len(parts) == 2 {
			lines[i] = "**" + strings.TrimSpace(parts[1]) + "**"
		}
	}
	return strings.Join(lines, "\n")
}

func cardMentionPrefix(mentions []channel.Mention) string {
	var sb strings.Builder
	for _, m := range mentions {
		id := strings.TrimSpace(m.OpenID)
		if id == "" {
			continue
		}
		fmt.Fprintf(&sb, "<at id=%s></at> ", id)
	}
	return sb.String()
}
