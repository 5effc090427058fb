package facet

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/matst80/slask-docs/pkg/types"
)

var collator = collate.New(language.Und)

// Categories returns the ordered category labels. An authoritative choice
// list is used verbatim when present, it may contain labels with zero
// matching items. Otherwise the distinct non-empty Category values across the
// items are returned, ordered by locale aware comparison. Ties keep encounter
// order.
func Categories(items []types.DocumentItem, authoritative []string) []string {
	if len(authoritative) > 0 {
		return authoritative
	}
	return distinct(items, func(d *types.DocumentItem) (string, bool) {
		return d.Category, true
	})
}

// SubCategories returns the ordered sub-category labels for a category.
// Authoritative choice lists are independent columns and are NOT filtered by
// category, they may therefore list sub-categories yielding an empty page.
// Inferred values are restricted to items of the given category.
func SubCategories(items []types.DocumentItem, category string, authoritative []string) []string {
	if len(authoritative) > 0 {
		return authoritative
	}
	return distinct(items, func(d *types.DocumentItem) (string, bool) {
		return d.SubCategory, d.Category == category
	})
}

func distinct(items []types.DocumentItem, pick func(*types.DocumentItem) (string, bool)) []string {
	seen := map[string]struct{}{}
	values := []string{}
	for i := range items {
		v, ok := pick(&items[i])
		if !ok || v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.SliceStable(values, func(i, j int) bool {
		return collator.CompareString(values[i], values[j]) < 0
	})
	return values
}

// Set is the facet navigation derived once per item load. It is reused for
// every render pass until the items or the configured facet columns change.
type Set struct {
	Categories []string `json:"categories"`

	subs          map[string][]string
	authoritative []string
}

// BuildSet precomputes categories and per-category sub-categories from the
// items and the authoritative choice lists (either may be empty).
func BuildSet(items []types.DocumentItem, categoryChoices, subCategoryChoices []string) *Set {
	s := &Set{
		Categories:    Categories(items, categoryChoices),
		authoritative: subCategoryChoices,
	}
	if len(subCategoryChoices) == 0 {
		s.subs = make(map[string][]string, len(s.Categories))
		for _, c := range s.Categories {
			s.subs[c] = SubCategories(items, c, nil)
		}
	}
	return s
}

// SubCategories returns the sub-category labels for a category. With an
// authoritative list the same labels apply to every category.
func (s *Set) SubCategories(category string) []string {
	if len(s.authoritative) > 0 {
		return s.authoritative
	}
	if subs, ok := s.subs[category]; ok {
		return subs
	}
	return []string{}
}

// FirstSubCategory returns the initial sub-tab selection after a category
// click, empty when the category has no sub-categories.
func (s *Set) FirstSubCategory(category string) string {
	subs := s.SubCategories(category)
	if len(subs) == 0 {
		return ""
	}
	return subs[0]
}

// ReplaceSubChoices swaps in a freshly fetched authoritative sub-category
// list. Used when a choice refresh lands after the set was built.
func (s *Set) ReplaceSubChoices(choices []string) {
	s.authoritative = choices
}
