package source

import (
	"context"

	"github.com/matst80/slask-docs/pkg/types"
)

// ListInfo identifies a list on the upstream site.
type ListInfo struct {
	Id    string `json:"Id"`
	Title string `json:"Title"`
}

// ColumnInfo describes a list column, used by the configuration surface to
// offer suitable columns per role (choice columns for facets, text columns
// for display overrides, simple columns for the request store).
type ColumnInfo struct {
	InternalName string `json:"InternalName"`
	Title        string `json:"Title"`
	Type         string `json:"TypeAsString"`
	ReadOnly     bool   `json:"ReadOnlyField"`
}

// RequestRecord is one row in the external access-request list.
type RequestRecord struct {
	Id     string
	Fields map[string]any
}

// DocumentSource supplies document records and authoritative facet choices.
type DocumentSource interface {
	// FetchItems loads the documents of a library. Field values for
	// unconfigured columns fall back to defaults (Title, empty description).
	FetchItems(ctx context.Context, library, categoryColumn, subCategoryColumn string, extraColumns []string) ([]types.DocumentItem, error)
	// FetchChoices returns the authoritative values of a choice column,
	// empty when the column is unset or has no defined choices.
	FetchChoices(ctx context.Context, library, column string) ([]string, error)
}

// RequestStore persists access-request records.
type RequestStore interface {
	// FindRequest returns the record matching both column values, or nil
	// when absent.
	FindRequest(ctx context.Context, list, idColumn, idValue, requesterColumn, requesterValue string, extraColumns []string) (*RequestRecord, error)
	CreateRequest(ctx context.Context, list string, fields map[string]any) error
	UpdateRequest(ctx context.Context, list, recordId string, fields map[string]any) error
}

// Catalog discovers lists and columns for the configuration surface.
type Catalog interface {
	// Lists returns the visible lists of the given base template
	// (101 document libraries, 100 generic lists).
	Lists(ctx context.Context, baseTemplate int) ([]ListInfo, error)
	Columns(ctx context.Context, list string) ([]ColumnInfo, error)
}
