package channel

import (
	"net/url"
	"regexp"
	"strings"
)

// MediaTokenMarker starts a line that names an attachment inline, e.g.
// "MEDIA: https://example.com/chart.png".
const MediaTokenMarker = "MEDIA"

const maxMediaTokenLen = 4096

var (
	mediaTokenPattern = regexp.MustCompile(`\b` + MediaTokenMarker + `:\s*(?:` + "`([^`]+)`" + `|(\S+))`)
	driveLetterPath   = regexp.MustCompile(`^[A-Za-z]:[\\/]`)
)

// MediaTokenResult is the outcome of ExtractMediaTokens.
type MediaTokenResult struct {
	Text      string
	MediaURLs []string
}

// HasMediaToken reports whether text mentions the marker at all.
func HasMediaToken(text string) bool {
	return strings.Contains(text, MediaTokenMarker+":")
}

// ExtractMediaTokens pulls "MEDIA: <ref>" lines out of free text. A marker
// line is removed only when at least one of its values is an acceptable
// reference; otherwise it is kept verbatim. Lines inside fenced code blocks
// are never touched. URLs are returned once each, in first-seen order.
func ExtractMediaTokens(text string) MediaTokenResult {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	var urls []string
	seen := map[string]struct{}{}
	inFence := false

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			kept = append(kept, line)
			continue
		}
		if inFence || !strings.HasPrefix(trimmed, MediaTokenMarker+":") {
			kept = append(kept, line)
			continue
		}

		accepted := 0
		for _, match := range mediaTokenPattern.FindAllStringSubmatch(line, -1) {
			raw := match[1]
			if raw == "" {
				raw = match[2]
			}
			value, ok := cleanMediaToken(raw)
			if !ok {
				continue
			}
			accepted++
			if _, dup := seen[value]; dup {
				continue
			}
			seen[value] = struct{}{}
			urls = append(urls, value)
		}
		if accepted == 0 {
			kept = append(kept, line)
		}
	}

	return MediaTokenResult{
		Text:      strings.TrimSpace(collapseBlankLines(kept)),
		MediaURLs: urls,
	}
}

func cleanMediaToken(raw string) (string, bool) {
	value := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "`\"'()[]{}<>"))
	if value == "" || len(value) > maxMediaTokenLen {
		return "", false
	}
	if hasParentSegment(value) {
		return "", false
	}
	if !isAcceptedMediaRef(value) {
		return "", false
	}
	return value, true
}

func isAcceptedMediaRef(value string) bool {
	switch {
	case strings.HasPrefix(value, "./"):
		return true
	case strings.HasPrefix(value, "/") && !strings.HasPrefix(value, "//"):
		return true
	case driveLetterPath.MatchString(value):
		return true
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

func hasParentSegment(value string) bool {
	candidates := []string{value}
	if decoded, err := url.PathUnescape(value); err == nil && decoded != value {
		candidates = append(candidates, decoded)
	}
	for _, candidate := range candidates {
		for _, segment := range strings.FieldsFunc(candidate, func(r rune) bool {
			return r == '/' || r == '\\' || r == '?' || r == '#'
		}) {
			if segment == ".." {
				return true
			}
		}
	}
	return false
}

func collapseBlankLines(lines []string) string {
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
