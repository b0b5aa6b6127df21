package channel

import (
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

var tableSeparatorLine = regexp.MustCompile(`^\s*\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?\s*$`)

// ShouldRenderCard reports whether text needs rich rendering: it opens a
// fenced code block or holds a pipe table. An unclosed fence counts, since
// streamed blocks may end before the closing fence arrives.
func ShouldRenderCard(text string) bool {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if isFenceLine(line) || isTableStart(lines, i) {
			return true
		}
	}
	return false
}

func isFenceLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

// ConvertMarkdownTables rewrites pipe tables for targets that cannot render
// them. Tables inside fenced code are left alone.
func ConvertMarkdownTables(text string, mode TableMode) string {
	if mode == TableModeOff || !strings.Contains(text, "|") {
		return text
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	inFence := false
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if isFenceLine(line) {
			inFence = !inFence
			out = append(out, line)
			continue
		}
		if inFence || !isTableStart(lines, i) {
			out = append(out, line)
			continue
		}
		end := i + 2
		for end < len(lines) && strings.Contains(lines[end], "|") && strings.TrimSpace(lines[end]) != "" {
			end++
		}
		block := lines[i:end]
		if rendered, ok := renderTable(block, mode); ok {
			out = append(out, rendered)
		} else {
			out = append(out, block...)
		}
		i = end - 1
	}
	return strings.Join(out, "\n")
}

func isTableStart(lines []string, i int) bool {
	if i+1 >= len(lines) || !strings.Contains(lines[i], "|") {
		return false
	}
	return strings.Contains(lines[i+1], "-") && tableSeparatorLine.MatchString(lines[i+1])
}

func renderTable(block []string, mode TableMode) (string, bool) {
	if mode == TableModeCode {
		return "```\n" + strings.Join(block, "\n") + "\n```", true
	}
	header, rows := parseTable(strings.Join(block, "\n"))
	if len(header) == 0 {
		return "", false
	}
	var sb strings.Builder
	for r, row := range rows {
		if r > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		parts := make([]string, 0, len(row))
		for c, cell := range row {
			if cell == "" {
				continue
			}
			if c < len(header) && header[c] != "" {
				parts = append(parts, header[c]+": "+cell)
			} else {
				parts = append(parts, cell)
			}
		}
		sb.WriteString(strings.Join(parts, "; "))
	}
	if len(rows) == 0 {
		sb.WriteString("- " + strings.Join(header, "; "))
	}
	return sb.String(), true
}

// parseTable returns header cells and body rows of the first table in src.
func parseTable(src string) ([]string, [][]string) {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(src))

	var header []string
	var rows [][]string
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		table, ok := node.(*ast.Table)
		if !ok {
			return ast.GoToNext
		}
		for _, section := range table.GetChildren() {
			for _, child := range section.GetChildren() {
				tr, ok := child.(*ast.TableRow)
				if !ok {
					continue
				}
				cells := make([]string, 0, len(tr.GetChildren()))
				for _, cell := range tr.GetChildren() {
					cells = append(cells, strings.TrimSpace(cellText(cell)))
				}
				if _, isHeader := section.(*ast.TableHeader); isHeader && header == nil {
					header = cells
				} else {
					rows = append(rows, cells)
				}
			}
		}
		return ast.Terminate
	})
	return header, rows
}

func cellText(node ast.Node) string {
	var sb strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch v := n.(type) {
		case *ast.Text:
			sb.Write(v.Literal)
		case *ast.Code:
			sb.Write(v.Literal)
		}
		return ast.GoToNext
	})
	return sb.String()
}
