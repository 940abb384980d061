// Package proposal pulls a proposed document out of an agent's markdown reply: agents answer with prose around a fenced code block that holds the full
// replacement text.
package proposal

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	ErrNoBlock      = errors.New("proposal: no fenced code block")
	ErrUnterminated = errors.New("proposal: unterminated ``` fence")
)

// Block is one fenced code block.
type Block struct {
	Info    string // full info string, e.g. "go title=main.go"
	Lang    string // first word of Info; may be empty
	Content string // block body, each line keeping its '\n'
	Line    int    // 1-based line where the body starts
}

// Blocks returns every fenced code block in src, in document order.
func Blocks(src []byte) ([]Block, error) {
	if err := validateFences(src); err != nil {
		return nil, err
	}
	root := goldmark.New().Parser().Parse(text.NewReader(src))
	if root == nil {
		return nil, errors.New("proposal: parse markdown: nil document")
	}

	var blocks []Block
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		info := ""
		if fcb.Info != nil {
			info = strings.TrimSpace(string(fcb.Info.Value(src)))
		}
		content, start := fencedContent(src, fcb)
		line := 1 + bytes.Count(src[:start], []byte("\n"))
		blocks = append(blocks, Block{Info: info, Lang: infoLang(info), Content: content, Line: line})
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// Extract returns the content of the first fenced block whose language is lang (case-insensitive). An empty lang matches any block.
func Extract(markdown string, lang string) (string, error) {
	blocks, err := Blocks([]byte(markdown))
	if err != nil {
		return "", err
	}
	for _, b := range blocks {
		if lang == "" || strings.EqualFold(b.Lang, lang) {
			return b.Content, nil
		}
	}
	if lang != "" {
		return "", fmt.Errorf("%w with language %q", ErrNoBlock, lang)
	}
	return "", ErrNoBlock
}

func infoLang(info string) string {
	lang, _, _ := strings.Cut(info, " ")
	lang, _, _ = strings.Cut(lang, "{")
	return strings.TrimSpace(lang)
}

// fencedContent returns the body of fcb and its byte offset in src (the position after the opening fence when the body is empty).
func fencedContent(src []byte, fcb *ast.FencedCodeBlock) (string, int) {
	lines := fcb.Lines()
	if lines == nil || lines.Len() == 0 {
		start := 0
		if fcb.Info != nil {
			start = fcb.Info.Segment.Stop
		}
		return "", start
	}
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String(), lines.At(0).Start
}

// validateFences rejects a ``` fence with no closing fence. goldmark would run such a block to EOF, which would silently swallow the agent's trailing prose.
func validateFences(src []byte) error {
	open := 0
	for _, line := range bytes.Split(src, []byte("\n")) {
		trim := bytes.TrimLeft(line, " \t")
		n := 0
		for n < len(trim) && trim[n] == '`' {
			n++
		}
		if n < 3 {
			continue
		}
		switch {
		case open == 0:
			open = n
		case n >= open && len(bytes.TrimSpace(trim[n:])) == 0:
			open = 0
		}
	}
	if open != 0 {
		return ErrUnterminated
	}
	return nil
}
