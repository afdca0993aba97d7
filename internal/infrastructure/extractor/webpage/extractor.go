// Package webpage extracts a title and plain text from stored raw
// page bodies, either HTML or PDF.
package webpage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/ledongthuc/pdf"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
	"github.com/kkucdk/assistant-backend/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, page *domain.Page) (string, string, error) {
	reader, err := e.storage.Open(ctx, page.StoragePath)
	if err != nil {
		return "", "", fmt.Errorf("open stored page: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", "", fmt.Errorf("read stored page: %w", err)
	}

	if isPDF(page, raw) {
		return extractPDF(page, raw)
	}
	return extractHTML(raw)
}

func isPDF(page *domain.Page, raw []byte) bool {
	if strings.Contains(page.ContentType, "pdf") {
		return true
	}
	return bytes.HasPrefix(raw, []byte("%PDF-"))
}

func extractPDF(page *domain.Page, raw []byte) (string, string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", "", fmt.Errorf("parse pdf: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return "", "", fmt.Errorf("read pdf text: %w", err)
	}

	return pdfTitle(page.URL), collapseWhitespace(buf.String()), nil
}

// pdfTitle falls back to the file name, since PDF metadata titles are
// missing or junk on most scanned documents.
func pdfTitle(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	name := path.Base(parsed.Path)
	return strings.TrimSuffix(name, path.Ext(name))
}

func extractHTML(raw []byte) (string, string, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	var title string
	var parts []string
	var walk func(node *html.Node, skip bool)
	walk = func(node *html.Node, skip bool) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "title":
				if title == "" && node.FirstChild != nil {
					title = strings.TrimSpace(node.FirstChild.Data)
				}
				return
			case "script", "style", "noscript", "iframe", "nav", "footer":
				skip = true
			}
		}
		if node.Type == html.TextNode && !skip {
			if text := strings.TrimSpace(node.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child, skip)
		}
	}
	walk(doc, false)

	return title, collapseWhitespace(strings.Join(parts, " ")), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
