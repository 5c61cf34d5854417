package ops

import (
	"bytes"
	"context"
	"html"

	"github.com/yuin/goldmark"

	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
)

// RenderOutput is an entry with its text converted to HTML.
type RenderOutput struct {
	ID    entry.ID `json:"id"`
	Title string   `json:"title"`
	Date  string   `json:"timestamp"`
	HTML  string   `json:"html"`
}

// markdown renders entry text. Raw HTML in the text is not passed through.
var markdown = goldmark.New()

// Render converts the text of an entry from Markdown to HTML.
func Render(ctx context.Context, env *Env, id entry.ID) (*RenderOutput, error) {
	e, err := Get(ctx, env, id)
	if err != nil {
		return nil, err
	}

	body, err := renderMarkdown(e.Text)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return &RenderOutput{
		ID:    e.ID,
		Title: e.Title,
		Date:  e.Date.String(),
		HTML:  body,
	}, nil
}

// RenderDocument wraps a rendered entry in a minimal standalone HTML page.
func RenderDocument(out *RenderOutput) string {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	buf.WriteString(html.EscapeString(out.Title))
	buf.WriteString("</title>\n</head>\n<body>\n<h1>")
	buf.WriteString(html.EscapeString(out.Title))
	buf.WriteString("</h1>\n<p><time>")
	buf.WriteString(out.Date)
	buf.WriteString("</time></p>\n")
	buf.WriteString(out.HTML)
	buf.WriteString("</body>\n</html>\n")
	return buf.String()
}

func renderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
