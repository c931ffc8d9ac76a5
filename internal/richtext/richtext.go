// Package richtext reads ProseMirror documents stored as post content.
package richtext

import (
	"encoding/json"
	"math"
	"strings"
)

// WordsPerMinute is the reading speed used for estimates.
const WordsPerMinute = 200

// Node is a node in a ProseMirror document tree.
type Node struct {
	Type    string                 `json:"type"`
	Attrs   map[string]interface{} `json:"attrs,omitempty"`
	Content []Node                 `json:"content,omitempty"`
	Text    string                 `json:"text,omitempty"`
}

// Parse decodes a document. Empty input and JSON null yield a nil node.
func Parse(raw []byte) (*Node, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var doc Node
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Walk calls fn for n and every descendant, depth first.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for i := range n.Content {
		n.Content[i].Walk(fn)
	}
}

// WordCount counts whitespace-separated words in the text nodes of raw.
// Malformed documents count as empty.
func WordCount(raw []byte) int {
	doc, err := Parse(raw)
	if err != nil || doc == nil {
		return 0
	}
	words := 0
	doc.Walk(func(n *Node) {
		if n.Type == "text" {
			words += len(strings.Fields(n.Text))
		}
	})
	return words
}

// ReadingMinutes estimates reading time. It is never less than one minute.
func ReadingMinutes(raw []byte) int {
	minutes := int(math.Ceil(float64(WordCount(raw)) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// PlainText flattens the text nodes of raw, separating blocks with
// newlines.
func PlainText(raw []byte) string {
	doc, err := Parse(raw)
	if err != nil || doc == nil {
		return ""
	}
	var b strings.Builder
	var render func(n *Node)
	render = func(n *Node) {
		switch n.Type {
		case "text":
			b.WriteString(n.Text)
			return
		case "hardBreak":
			b.WriteString("\n")
			return
		}
		for i := range n.Content {
			render(&n.Content[i])
		}
		if n.Type != "doc" && len(n.Content) > 0 && isBlock(n.Type) {
			b.WriteString("\n")
		}
	}
	render(doc)
	return strings.TrimSpace(b.String())
}

func isBlock(nodeType string) bool {
	switch nodeType {
	case "paragraph", "heading", "blockquote", "codeBlock", "listItem":
		return true
	}
	return false
}

// Doc builds a document with one paragraph per non-empty string.
func Doc(paragraphs ...string) []byte {
	doc := Node{Type: "doc", Content: []Node{}}
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		doc.Content = append(doc.Content, Node{
			Type:    "paragraph",
			Content: []Node{{Type: "text", Text: p}},
		})
	}
	raw, _ := json.Marshal(doc)
	return raw
}
