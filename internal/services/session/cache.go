package session

import (
	"github.com/ternarybob/stocklens/internal/models"
)

// Cache holds the analysis of each language for the current session.
// Entries are replaced wholesale and copied on the way in and out.
// Cache is not safe for concurrent use; Service guards it with its mutex.
type Cache struct {
	entries map[models.Language][]models.AnalysisSection
}

// NewCache returns an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[models.Language][]models.AnalysisSection)}
}

// NewCacheFrom builds a cache from persisted entries. Empty entries are dropped.
func NewCacheFrom(entries map[models.Language][]models.AnalysisSection) *Cache {
	c := NewCache()
	for lang, sections := range entries {
		c.Put(lang, sections)
	}
	return c
}

// Get returns a copy of the sections cached for lang
func (c *Cache) Get(lang models.Language) ([]models.AnalysisSection, bool) {
	sections, ok := c.entries[lang]
	if !ok {
		return nil, false
	}
	return cloneSections(sections), true
}

// Put replaces the entry for lang. An empty analysis removes the entry.
func (c *Cache) Put(lang models.Language, sections []models.AnalysisSection) {
	if len(sections) == 0 {
		delete(c.entries, lang)
		return
	}
	c.entries[lang] = cloneSections(sections)
}

// Has reports whether lang has a cached analysis
func (c *Cache) Has(lang models.Language) bool {
	_, ok := c.entries[lang]
	return ok
}

// IsEmpty reports whether no language has been populated
func (c *Cache) IsEmpty() bool {
	return len(c.entries) == 0
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.entries = make(map[models.Language][]models.AnalysisSection)
}

// Languages lists the cached languages in presentation order
func (c *Cache) Languages() []models.Language {
	langs := make([]models.Language, 0, len(c.entries))
	for _, lang := range models.Languages {
		if c.Has(lang) {
			langs = append(langs, lang)
		}
	}
	return langs
}

// ToMap returns a deep copy suitable for a snapshot
func (c *Cache) ToMap() map[models.Language][]models.AnalysisSection {
	out := make(map[models.Language][]models.AnalysisSection, len(c.entries))
	for lang, sections := range c.entries {
		out[lang] = cloneSections(sections)
	}
	return out
}

func cloneSections(sections []models.AnalysisSection) []models.AnalysisSection {
	if sections == nil {
		return nil
	}
	out := make([]models.AnalysisSection, len(sections))
	for i, s := range sections {
		out[i] = s
		if s.Strategy != nil {
			strategy := *s.Strategy
			out[i].Strategy = &strategy
		}
	}
	return out
}
