package feed

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultUserAgent = "jobops/1.0 (personal-use job search tool)"
	defaultTimeout   = 15 * time.Second
	defaultMaxBody   = 8 << 20 // 8 MiB
)

// NewClient instantiates a feed client
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}

	return &Client{
		httpClient: httpClient,
		userAgent:  userAgent,
		maxBody:    maxBody,
	}
}

// Fetch downloads one RSS or Atom document and returns its postings.
func (c *Client) Fetch(ctx context.Context, feedURL string) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(feedURL), nil)
	if err != nil {
		return nil, fmt.Errorf("feed: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: fetch %s: %w", feedURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("feed: fetch %s: HTTP %d", feedURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("feed: read %s: %w", feedURL, err)
	}

	items, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("feed: %s: %w", feedURL, err)
	}
	return items, nil
}

// Parse decodes an RSS 2.0 or Atom 1.0 document. Entries without a
// link are dropped; the link is the pipeline's dedup key, so an item
// without one is unusable.
func Parse(data []byte) ([]Item, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}

	switch root {
	case "rss":
		var doc rssDocument
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse rss: %w", err)
		}
		items := make([]Item, 0, len(doc.Channel.Items))
		for _, it := range doc.Channel.Items {
			link := strings.TrimSpace(it.Link)
			if link == "" {
				continue
			}
			items = append(items, Item{
				Title:       strings.TrimSpace(it.Title),
				Link:        link,
				Description: strings.TrimSpace(it.Description),
			})
		}
		return items, nil

	case "feed":
		var doc atomFeed
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse atom: %w", err)
		}
		items := make([]Item, 0, len(doc.Entries))
		for _, entry := range doc.Entries {
			link := entry.link()
			if link == "" {
				continue
			}
			desc := entry.Summary
			if desc == "" {
				desc = entry.Content
			}
			items = append(items, Item{
				Title:       strings.TrimSpace(entry.Title),
				Link:        link,
				Description: strings.TrimSpace(desc),
			})
		}
		return items, nil

	default:
		return nil, fmt.Errorf("unsupported feed root element <%s>", root)
	}
}

// link prefers rel="alternate" (or unqualified) links, the Atom
// convention for the posting page.
func (e atomEntry) link() string {
	for _, l := range e.Links {
		if l.Rel == "" || l.Rel == "alternate" {
			if href := strings.TrimSpace(l.Href); href != "" {
				return href
			}
		}
	}
	for _, l := range e.Links {
		if href := strings.TrimSpace(l.Href); href != "" {
			return href
		}
	}
	return ""
}

func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}
