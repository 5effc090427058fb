package types

import (
	"time"
)

// DocumentItem is one record from the configured document library. Items are
// immutable once fetched, the whole collection is replaced on reload.
type DocumentItem struct {
	Id          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category"`
	SubCategory string            `json:"subCategory"`
	FileRef     string            `json:"fileRef,omitempty"`
	Modified    time.Time         `json:"modified"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Field resolves a column value on the item. Well known columns map to the
// struct fields, everything else is looked up in the open field map. Display,
// search and sorting all go through this lookup so a configured override
// column behaves the same everywhere.
func (d *DocumentItem) Field(name string) string {
	switch name {
	case "", "Title":
		return d.Title
	case "Description":
		return d.Description
	case "Category":
		return d.Category
	case "SubCategory":
		return d.SubCategory
	case "FileRef":
		return d.FileRef
	case "Modified":
		if d.Modified.IsZero() {
			return ""
		}
		return d.Modified.Format(time.RFC3339)
	}
	if v, ok := d.Fields[name]; ok {
		return v
	}
	return ""
}

// DisplayTitle returns the value of the configured title column, falling back
// to the default Title field when no override is set.
func (d *DocumentItem) DisplayTitle(titleColumn string) string {
	if titleColumn == "" {
		return d.Title
	}
	return d.Field(titleColumn)
}

// DisplayDescription returns the value of the configured description column,
// falling back to the default Description field.
func (d *DocumentItem) DisplayDescription(descriptionColumn string) string {
	if descriptionColumn == "" {
		return d.Description
	}
	return d.Field(descriptionColumn)
}
