package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/hazyhaar/promptnav/promptnav/internal/dom"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// Markdown reads the current inner HTML of n and converts it to Markdown.
// If conversion yields nothing, the trimmed rendered text is returned.
func Markdown(ctx context.Context, doc dom.Document, n dom.Node) (string, error) {
	html, err := doc.HTML(ctx, n)
	if err != nil {
		return "", fmt.Errorf("extract: read html: %w", err)
	}
	md, err := mdConverter.ConvertString(html)
	if err == nil && strings.TrimSpace(md) != "" {
		return strings.TrimSpace(md), nil
	}

	text, terr := doc.Text(ctx, n)
	if terr != nil {
		return "", fmt.Errorf("extract: read text: %w", terr)
	}
	return strings.TrimSpace(text), nil
}
