package types

import "sync"

// ListingSettings selects which library and columns drive the listing.
type ListingSettings struct {
	Library           string `json:"library"`
	CategoryColumn    string `json:"categoryColumn"`
	SubCategoryColumn string `json:"subCategoryColumn"`
	TitleColumn       string `json:"titleColumn,omitempty"`
	DescriptionColumn string `json:"descriptionColumn,omitempty"`
	PageSize          int    `json:"pageSize"`
}

// RequestSettings selects the destination list and columns for access
// requests. CountColumn is optional, without it every request creates a new
// record (legacy behavior).
type RequestSettings struct {
	List             string `json:"list"`
	DocumentIdColumn string `json:"documentIdColumn"`
	RequesterColumn  string `json:"requesterColumn"`
	CountColumn      string `json:"countColumn,omitempty"`
}

func (r RequestSettings) Configured() bool {
	return r.List != "" && r.DocumentIdColumn != "" && r.RequesterColumn != ""
}

type Settings struct {
	mu      sync.RWMutex
	Listing ListingSettings `json:"listing"`
	Request RequestSettings `json:"request"`
}

var CurrentSettings = &Settings{
	Listing: ListingSettings{
		PageSize: DefaultPageSize,
	},
}

func (s *Settings) Lock()    { s.mu.Lock() }
func (s *Settings) Unlock()  { s.mu.Unlock() }
func (s *Settings) RLock()   { s.mu.RLock() }
func (s *Settings) RUnlock() { s.mu.RUnlock() }

// ListingSnapshot returns a copy of the listing settings for one render pass.
// The page size is clamped into [MinPageSize, MaxPageSize], unset falls back
// to DefaultPageSize.
func (s *Settings) ListingSnapshot() ListingSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := s.Listing
	switch {
	case l.PageSize <= 0:
		l.PageSize = DefaultPageSize
	case l.PageSize < MinPageSize:
		l.PageSize = MinPageSize
	case l.PageSize > MaxPageSize:
		l.PageSize = MaxPageSize
	}
	return l
}

// RequestSnapshot returns a copy of the request settings for one submission.
func (s *Settings) RequestSnapshot() RequestSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Request
}
