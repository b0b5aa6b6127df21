package channel

import (
	"strings"
	"unicode/utf8"
)

// ChunkerMode selects the text chunking strategy.
type ChunkerMode string

const (
	ChunkerModeText     ChunkerMode = "text"
	ChunkerModeMarkdown ChunkerMode = "markdown"
)

// DefaultTextChunkLimit is the rune budget per outbound text message.
const DefaultTextChunkLimit = 4000

// ParseChunkerMode maps config text to a ChunkerMode. Anything other than
// "markdown" selects line chunking.
func ParseChunkerMode(raw string) ChunkerMode {
	if strings.EqualFold(strings.TrimSpace(raw), string(ChunkerModeMarkdown)) {
		return ChunkerModeMarkdown
	}
	return ChunkerModeText
}

// Chunker splits text into pieces of at most limit runes.
type Chunker func(text string, limit int) []string

// OutboundPolicy configures how outbound text is chunked. Failed sends are
// never retried.
type OutboundPolicy struct {
	TextChunkLimit int         `json:"text_chunk_limit,omitempty"`
	ChunkerMode    ChunkerMode `json:"chunker_mode,omitempty"`
	Chunker        Chunker     `json:"-"`
}

// NormalizeOutboundPolicy fills zero-value fields with defaults.
func NormalizeOutboundPolicy(policy OutboundPolicy) OutboundPolicy {
	if policy.TextChunkLimit <= 0 {
		policy.TextChunkLimit = DefaultTextChunkLimit
	}
	if policy.ChunkerMode == "" {
		policy.ChunkerMode = ChunkerModeText
	}
	if policy.Chunker == nil {
		policy.Chunker = DefaultChunker(policy.ChunkerMode)
	}
	return policy
}

// Chunk applies the policy to text.
func (p OutboundPolicy) Chunk(text string) []string {
	p = NormalizeOutboundPolicy(p)
	return p.Chunker(text, p.TextChunkLimit)
}

// DefaultChunker returns the built-in Chunker for mode.
func DefaultChunker(mode ChunkerMode) Chunker {
	if mode == ChunkerModeMarkdown {
		return ChunkMarkdownText
	}
	return ChunkText
}

// ChunkText packs whole lines into chunks. A line longer than limit is cut
// into fixed rune windows.
func ChunkText(text string, limit int) []string {
	return chunkBy(text, limit, "\n", splitLongLine)
}

// ChunkMarkdownText packs whole paragraphs into chunks. A paragraph longer
// than limit falls back to ChunkText.
func ChunkMarkdownText(text string, limit int) []string {
	return chunkBy(text, limit, "\n\n", ChunkText)
}

func chunkBy(text string, limit int, sep string, oversized Chunker) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	p := packer{limit: limit, sep: sep, sepLen: utf8.RuneCountInString(sep)}
	for _, segment := range strings.Split(text, sep) {
		n := utf8.RuneCountInString(segment)
		if p.fits(n) {
			p.add(segment, n)
			continue
		}
		p.flush()
		if n <= limit {
			p.add(segment, n)
			continue
		}
		p.out = append(p.out, oversized(segment, limit)...)
	}
	p.flush()
	return p.out
}

// packer accumulates segments until the next one would overflow limit.
type packer struct {
	limit  int
	sep    string
	sepLen int
	cur    strings.Builder
	curLen int
	out    []string
	filled bool
}

func (p *packer) fits(n int) bool {
	if !p.filled {
		return n <= p.limit
	}
	return p.curLen+p.sepLen+n <= p.limit
}

func (p *packer) add(segment string, n int) {
	if p.filled {
		p.cur.WriteString(p.sep)
		p.curLen += p.sepLen
	}
	p.cur.WriteString(segment)
	p.curLen += n
	p.filled = true
}

func (p *packer) flush() {
	if !p.filled {
		return
	}
	p.out = append(p.out, p.cur.String())
	p.cur.Reset()
	p.curLen = 0
	p.filled = false
}

func splitLongLine(line string, limit int) []string {
	if limit <= 0 {
		return []string{line}
	}
	var out []string
	for line != "" {
		cut := len(line)
		count := 0
		for i := range line {
			if count == limit {
				cut = i
				break
			}
			count++
		}
		if piece := strings.TrimSpace(line[:cut]); piece != "" {
			out = append(out, piece)
		}
		line = line[cut:]
	}
	return out
}
