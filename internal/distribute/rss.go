package distribute

import (
	"context"
	"encoding/xml"
	"sync"
	"time"

	"github.com/curatehub/curatehub/internal/model"
)

const defaultRSSLimit = 100

// RSSStore keeps the latest approved items per feed so the API can serve
// them as RSS 2.0. Newest first, capped per feed.
type RSSStore struct {
	mu    sync.RWMutex
	items map[string][]model.PipelineContent
	limit int
}

func NewRSSStore(limit int) *RSSStore {
	if limit <= 0 {
		limit = defaultRSSLimit
	}
	return &RSSStore{items: make(map[string][]model.PipelineContent), limit: limit}
}

func (s *RSSStore) add(feedID string, c model.PipelineContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := append([]model.PipelineContent{c}, s.items[feedID]...)
	if len(items) > s.limit {
		items = items[:s.limit]
	}
	s.items[feedID] = items
}

// Items returns a copy of the feed's current items, newest first.
func (s *RSSStore) Items(feedID string) []model.PipelineContent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PipelineContent, len(s.items[feedID]))
	copy(out, s.items[feedID])
	return out
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	GUID        string `xml:"guid"`
	Author      string `xml:"author,omitempty"`
	PubDate     string `xml:"pubDate"`
}

// Render serializes the feed's items as an RSS 2.0 document.
func (s *RSSStore) Render(feedID, feedName, link string) ([]byte, error) {
	items := s.Items(feedID)
	doc := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title:       feedName,
			Link:        link,
			Description: "Curated content for " + feedID,
		},
	}
	for _, c := range items {
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       c.Notes,
			Description: c.Text,
			GUID:        c.ExternalID,
			Author:      c.Author,
			PubDate:     c.SubmittedAt.Format(time.RFC1123Z),
		})
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// RSS is the distributor front of RSSStore.
type RSS struct {
	store *RSSStore
}

func NewRSS(store *RSSStore) *RSS {
	return &RSS{store: store}
}

func (r *RSS) Distribute(_ context.Context, _ map[string]any, c model.PipelineContent) error {
	r.store.add(c.FeedID, c)
	return nil
}
