// Package catalog reads places and services from the catalog tables.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"tour-estimate-workers/internal/models"
)

const entryColumns = `c.id, c.name_ko, c.name_en, c.item_type, COALESCE(c.region, ''),
	c.latitude, c.longitude, c.price, COALESCE(c.image_url, ''), c.tags, c.auto_suggest`

// PostgresCatalog implements the catalog lookups with one query per call,
// whatever the number of ids or names.
type PostgresCatalog struct {
	db *sql.DB
	// candidateSimilarity is the pg_trgm prefilter for fuzzy candidates. The
	// final fuzzy decision is made by the matching engine.
	candidateSimilarity float64
}

func NewPostgresCatalog(db *sql.DB, candidateSimilarity float64) *PostgresCatalog {
	if candidateSimilarity <= 0 {
		candidateSimilarity = 0.3
	}
	return &PostgresCatalog{db: db, candidateSimilarity: candidateSimilarity}
}

func (c *PostgresCatalog) FindByIDs(ctx context.Context, ids []int64) (map[int64]models.CatalogEntry, error) {
	out := make(map[int64]models.CatalogEntry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT ` + entryColumns + `
		FROM catalog_items c
		WHERE c.id = ANY($1) AND c.is_active
		ORDER BY c.id`

	rows, err := c.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("catalog find by ids: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		out[e.ID] = e
	}
	return out, nil
}

// FindByNames returns every active entry that could match one of names by
// exact, containment or trigram similarity. When regions is non-empty, entries
// outside those region labels are excluded; entries without region pass.
func (c *PostgresCatalog) FindByNames(ctx context.Context, names []string, regions []string) ([]models.CatalogEntry, error) {
	names = cleanNames(names)
	if len(names) == 0 {
		return nil, nil
	}

	query := `SELECT DISTINCT ` + entryColumns + `
		FROM catalog_items c
		JOIN unnest($1::text[]) AS q(n) ON
			lower(c.name_ko) = lower(q.n) OR lower(c.name_en) = lower(q.n)
			OR (c.name_ko <> '' AND (strpos(lower(q.n), lower(c.name_ko)) > 0 OR strpos(lower(c.name_ko), lower(q.n)) > 0))
			OR (c.name_en <> '' AND (strpos(lower(q.n), lower(c.name_en)) > 0 OR strpos(lower(c.name_en), lower(q.n)) > 0))
			OR similarity(lower(c.name_ko), lower(q.n)) >= $2
			OR similarity(lower(c.name_en), lower(q.n)) >= $2
		WHERE c.is_active
			AND (cardinality($3::text[]) = 0 OR c.region IS NULL OR c.region = '' OR lower(c.region) = ANY($3))
		ORDER BY c.id`

	rows, err := c.db.QueryContext(ctx, query, pq.Array(names), c.candidateSimilarity, pq.Array(lowerAll(regions)))
	if err != nil {
		return nil, fmt.Errorf("catalog find by names: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// FindIneligible returns the subset of names that exactly name an entry
// flagged as not eligible for auto-suggestion.
func (c *PostgresCatalog) FindIneligible(ctx context.Context, names []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	names = cleanNames(names)
	if len(names) == 0 {
		return out, nil
	}

	query := `SELECT DISTINCT q.n
		FROM unnest($1::text[]) AS q(n)
		JOIN catalog_items c ON NOT c.auto_suggest
			AND (lower(c.name_ko) = lower(q.n) OR lower(c.name_en) = lower(q.n))`

	rows, err := c.db.QueryContext(ctx, query, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("catalog find ineligible: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan ineligible name: %w", err)
		}
		out[name] = struct{}{}
	}
	return out, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry
	for rows.Next() {
		var (
			e    models.CatalogEntry
			tags pq.StringArray
		)
		if err := rows.Scan(
			&e.ID, &e.NameKo, &e.NameEn, &e.ItemType, &e.Region,
			&e.Latitude, &e.Longitude, &e.Price, &e.ImageURL, &tags, &e.AutoSuggest,
		); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		e.Tags = []string(tags)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog entries: %w", err)
	}
	return entries, nil
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
