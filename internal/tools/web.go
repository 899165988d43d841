package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/taskpilot/taskpilot/internal/agent"
	"github.com/taskpilot/taskpilot/internal/auth"
)

// ExtractPageTextName is the web extraction tool name.
const ExtractPageTextName = "extract_page_text"

const (
	fetchTimeout    = 30 * time.Second
	maxResponseSize = 10 << 20 // 10 MB
	maxExtractRunes = 20000
)

// ExtractPageTextInput defines input for the extract_page_text tool.
type ExtractPageTextInput struct {
	URL      string `json:"url" jsonschema_description:"Absolute http or https URL of the page to read."`
	Selector string `json:"selector,omitempty" jsonschema_description:"Optional CSS selector; when set, only text inside matching elements is returned."`
}

// WebTools lets the model read web pages as plain text.
type WebTools struct {
	client *http.Client
	logger *slog.Logger
}

// NewWebTools creates the web toolset. client may be nil for defaults.
func NewWebTools(client *http.Client, logger *slog.Logger) *WebTools {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebTools{client: client, logger: logger}
}

// Register adds the web tools to the registry.
func (w *WebTools) Register(r *agent.Registry) error {
	extract, err := agent.NewTool(ExtractPageTextName,
		"Fetch a web page and return its readable text content, stripped of markup and navigation.",
		w.extractPageText)
	if err != nil {
		return err
	}
	return r.Register(extract)
}

func (w *WebTools) extractPageText(ctx context.Context, _ auth.Caller, in ExtractPageTextInput) (any, error) {
	parsed, err := url.Parse(in.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme: %q (want http or https)", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "taskpilot/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching page: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}

	var title, text string
	if in.Selector != "" {
		title, text, err = extractSelection(body, in.Selector)
		if err != nil {
			return nil, err
		}
	} else {
		title, text = extractReadable(body, parsed)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no readable text found at %s", parsed)
	}

	truncated := false
	if utf8.RuneCountInString(text) > maxExtractRunes {
		text = string([]rune(text)[:maxExtractRunes])
		truncated = true
	}

	w.logger.Debug("extracted page text",
		"url", parsed.String(),
		"title", title,
		"chars", len(text),
		"truncated", truncated,
	)
	return map[string]any{
		"url":       parsed.String(),
		"title":     title,
		"text":      text,
		"truncated": truncated,
	}, nil
}

// extractReadable runs readability extraction with a goquery fallback for
// pages readability cannot parse into an article (link lists, dashboards).
func extractReadable(body []byte, pageURL *url.URL) (title, text string) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.Title, normalizeWhitespace(article.TextContent)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}
	doc.Find("script, style, noscript, iframe").Remove()
	title = strings.TrimSpace(doc.Find("title").First().Text())
	return title, normalizeWhitespace(doc.Find("body").Text())
}

// extractSelection returns the text of elements matching a CSS selector.
func extractSelection(body []byte, selector string) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("parsing page: %w", err)
	}

	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return "", "", fmt.Errorf("no elements match selector %q", selector)
	}

	var parts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	title = strings.TrimSpace(doc.Find("title").First().Text())
	return title, normalizeWhitespace(strings.Join(parts, " ")), nil
}

// normalizeWhitespace collapses runs of blank space so extracted text
// does not waste model context.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
