package domain

import (
	"time"
)

// Heading is one document heading in document order.
type Heading struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

// PageMetadata holds structured metadata extracted from one page.
type PageMetadata struct {
	Description string `json:"description,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
	Author      string `json:"author,omitempty"`
	Published   string `json:"published,omitempty"`
	Modified    string `json:"modified,omitempty"`
	Language    string `json:"language,omitempty"`
}

// ScrapedPage is the in-memory result of fetching and extracting one URL.
// Pages are immutable once fetched.
type ScrapedPage struct {
	URL         string       `json:"url"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	ContentHash string       `json:"content_hash"`
	Links       []string     `json:"links"`
	Images      []string     `json:"images"`
	Headings    []Heading    `json:"headings"`
	Metadata    PageMetadata `json:"metadata"`
	Depth       int          `json:"depth"`
	ParentURL   string       `json:"parent_url,omitempty"`
	AuthMethod  string       `json:"auth_method,omitempty"`
	WordCount   int          `json:"word_count"`
	ReadingTime int          `json:"reading_time"` // minutes
	FetchedAt   time.Time    `json:"fetched_at"`
}
