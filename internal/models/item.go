// internal/models/item.go
package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const DefaultItemType = "place"

// CatalogSnapshot holds display fields copied from the catalog at resolve time.
type CatalogSnapshot struct {
	NameKo    string  `json:"nameKo"`
	NameEn    string  `json:"nameEn"`
	ImageURL  string  `json:"imageUrl,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Region    string  `json:"region,omitempty"`
}

type resolvedRef struct {
	catalogID int64
	snapshot  CatalogSnapshot
}

// EstimateItem is either a placeholder or a resolved catalog item. The two
// variants are distinguished by the unexported catalog reference, which only
// NewResolvedItem and Resolve can set.
type EstimateItem struct {
	ID         string
	Day        int
	OrderIndex int
	ItemType   string
	Name       string
	Note       string

	quantity  int
	unitPrice int64
	ref       *resolvedRef
}

func NewPlaceholderItem(day int, name, note string) EstimateItem {
	return EstimateItem{
		ID:       uuid.NewString(),
		Day:      day,
		ItemType: DefaultItemType,
		Name:     name,
		Note:     note,
		quantity: 1,
	}
}

func NewResolvedItem(day int, entry CatalogEntry, note string) EstimateItem {
	item := EstimateItem{
		ID:       uuid.NewString(),
		Day:      day,
		Note:     note,
		quantity: 1,
	}
	item.Resolve(entry)
	return item
}

// Resolve binds the item to entry, taking its type, price and display fields.
func (i *EstimateItem) Resolve(entry CatalogEntry) {
	i.ItemType = entry.ItemType
	if i.ItemType == "" {
		i.ItemType = DefaultItemType
	}
	i.Name = entry.DisplayName()
	i.unitPrice = entry.Price
	i.ref = &resolvedRef{
		catalogID: entry.ID,
		snapshot: CatalogSnapshot{
			NameKo:    entry.NameKo,
			NameEn:    entry.NameEn,
			ImageURL:  entry.ImageURL,
			Latitude:  entry.Latitude,
			Longitude: entry.Longitude,
			Region:    entry.Region,
		},
	}
}

func (i EstimateItem) IsPlaceholder() bool { return i.ref == nil }

// CatalogID returns the resolved catalog identity.
func (i EstimateItem) CatalogID() (int64, bool) {
	if i.ref == nil {
		return 0, false
	}
	return i.ref.catalogID, true
}

func (i EstimateItem) Snapshot() *CatalogSnapshot {
	if i.ref == nil {
		return nil
	}
	s := i.ref.snapshot
	return &s
}

func (i EstimateItem) Quantity() int    { return i.quantity }
func (i EstimateItem) UnitPrice() int64 { return i.unitPrice }
func (i EstimateItem) Subtotal() int64  { return i.unitPrice * int64(i.quantity) }

func (i *EstimateItem) SetQuantity(q int) error {
	if q < 1 {
		return fmt.Errorf("quantity must be positive, got %d", q)
	}
	i.quantity = q
	return nil
}

func (i *EstimateItem) SetUnitPrice(p int64) error {
	if p < 0 {
		return fmt.Errorf("unit price must not be negative, got %d", p)
	}
	i.unitPrice = p
	return nil
}

type itemWire struct {
	ID          string           `json:"id"`
	Day         int              `json:"day"`
	OrderIndex  int              `json:"orderIndex"`
	ItemType    string           `json:"itemType"`
	Name        string           `json:"name"`
	Note        string           `json:"note,omitempty"`
	Placeholder bool             `json:"placeholder"`
	CatalogID   *int64           `json:"catalogId"`
	Quantity    int              `json:"quantity"`
	UnitPrice   int64            `json:"unitPrice"`
	Subtotal    int64            `json:"subtotal"`
	Snapshot    *CatalogSnapshot `json:"snapshot,omitempty"`
}

func (i EstimateItem) MarshalJSON() ([]byte, error) {
	w := itemWire{
		ID:          i.ID,
		Day:         i.Day,
		OrderIndex:  i.OrderIndex,
		ItemType:    i.ItemType,
		Name:        i.Name,
		Note:        i.Note,
		Placeholder: i.IsPlaceholder(),
		Quantity:    i.quantity,
		UnitPrice:   i.unitPrice,
		Subtotal:    i.Subtotal(),
	}
	if i.ref != nil {
		id := i.ref.catalogID
		w.CatalogID = &id
		w.Snapshot = i.Snapshot()
	}
	return json.Marshal(w)
}

// UnmarshalJSON rejects records whose placeholder flag disagrees with the
// catalog identity. The stored subtotal is ignored and recomputed.
func (i *EstimateItem) UnmarshalJSON(data []byte) error {
	var w itemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Placeholder != (w.CatalogID == nil) {
		return fmt.Errorf("item %s: placeholder=%t inconsistent with catalogId", w.ID, w.Placeholder)
	}
	if w.Quantity < 1 {
		w.Quantity = 1
	}

	*i = EstimateItem{
		ID:         w.ID,
		Day:        w.Day,
		OrderIndex: w.OrderIndex,
		ItemType:   w.ItemType,
		Name:       w.Name,
		Note:       w.Note,
		quantity:   w.Quantity,
		unitPrice:  w.UnitPrice,
	}
	if w.CatalogID != nil {
		ref := &resolvedRef{catalogID: *w.CatalogID}
		if w.Snapshot != nil {
			ref.snapshot = *w.Snapshot
		}
		i.ref = ref
	}
	return nil
}
