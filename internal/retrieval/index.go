// internal/retrieval/index.go
package retrieval

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"tour-estimate-workers/internal/common/cache"
)

var ErrSearchFailed = errors.New("similarity search failed")

// Record is one historical request returned by the similarity index.
type Record struct {
	ID         string       `json:"id"`
	Similarity float64      `json:"similarity"`
	Summary    string       `json:"summary,omitempty"`
	Region     string       `json:"region,omitempty"`
	Days       int          `json:"days,omitempty"`
	Items      []RecordItem `json:"items,omitempty"`
}

// RecordItem is an itinerary line that was sent for a historical request.
type RecordItem struct {
	Name      string `json:"name"`
	Day       int    `json:"day"`
	CatalogID *int64 `json:"catalogId,omitempty"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ElasticIndex runs kNN searches over embedded historical requests.
// Results are cached by query, k and minimum score.
type ElasticIndex struct {
	client   *elasticsearch.Client
	index    string
	embedder Embedder
	cache    cache.Cache
	ttl      time.Duration
}

func NewElasticIndex(client *elasticsearch.Client, index string, embedder Embedder, c cache.Cache, ttl time.Duration) *ElasticIndex {
	return &ElasticIndex{client: client, index: index, embedder: embedder, cache: c, ttl: ttl}
}

// Search returns up to k records scoring at least minScore, best first.
func (x *ElasticIndex) Search(ctx context.Context, query string, k int, minScore float64) ([]Record, error) {
	key := fmt.Sprintf("retrieval:%s:%d:%.3f", digest(query), k, minScore)
	return cache.GetOrLoad(ctx, x.cache, key, x.ttl, func(ctx context.Context) ([]Record, error) {
		return x.search(ctx, query, k, minScore)
	})
}

func (x *ElasticIndex) search(ctx context.Context, query string, k int, minScore float64) ([]Record, error) {
	vector, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"size": k,
		"knn": map[string]interface{}{
			"field":          "embedding",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 10,
		},
		"min_score": minScore,
		"_source":   []string{"summary", "region", "days", "items"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrSearchFailed, err)
	}

	req := esapi.SearchRequest{
		Index: []string{x.index},
		Body:  bytes.NewReader(payload),
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source Record  `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchFailed, err)
	}

	records := make([]Record, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		if h.Score < minScore {
			continue
		}
		r := h.Source
		r.ID = h.ID
		r.Similarity = h.Score
		records = append(records, r)
	}
	return records, nil
}

func digest(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
