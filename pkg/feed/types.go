package feed

import (
	"net/http"
	"time"
)

// Config defines feed client settings
type Config struct {
	HTTPClient *http.Client
	UserAgent  string
	Timeout    time.Duration
	MaxBody    int64
}

// Client fetches and parses RSS/Atom job feeds
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBody    int64
}

// Item is one posting from a feed, reduced to the fields the pipeline
// cares about.
type Item struct {
	Title       string
	Link        string
	Description string
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string     `xml:"title"`
	Links   []atomLink `xml:"link"`
	Summary string     `xml:"summary"`
	Content string     `xml:"content"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}
