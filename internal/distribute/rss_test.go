package distribute

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatehub/curatehub/internal/model"
)

func TestRSSStoreNewestFirstCapped(t *testing.T) {
	store := NewRSSStore(3)
	dist := NewRSS(store)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, dist.Distribute(ctx, nil, model.PipelineContent{
			ExternalID: fmt.Sprintf("t%d", i),
			FeedID:     "news",
			Text:       fmt.Sprintf("item %d", i),
		}))
	}

	items := store.Items("news")
	require.Len(t, items, 3)
	assert.Equal(t, "t5", items[0].ExternalID)
	assert.Equal(t, "t3", items[2].ExternalID)

	// feed 之间隔离
	assert.Empty(t, store.Items("tech"))
}

func TestRSSRender(t *testing.T) {
	store := NewRSSStore(0)
	store.add("news", model.PipelineContent{
		ExternalID:  "t1",
		FeedID:      "news",
		Author:      "bob",
		Notes:       "worth a read",
		Text:        "original post",
		SubmittedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	})

	out, err := store.Render("news", "News", "https://example.com/feeds/news")
	require.NoError(t, err)
	doc := string(out)
	assert.True(t, strings.HasPrefix(doc, "<?xml"))
	assert.Contains(t, doc, `<rss version="2.0">`)
	assert.Contains(t, doc, "<title>News</title>")
	assert.Contains(t, doc, "<guid>t1</guid>")
	assert.Contains(t, doc, "<description>original post</description>")
}
