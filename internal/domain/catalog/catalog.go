// Package catalog defines the chapter catalog collaborator. The catalog is
// owned by the content layer; the progress engine only consumes it, for
// category aggregation and achievement rule evaluation. It may be supplied
// after the store is constructed and can change between calls, so consumers
// must re-read it through a Provider instead of caching chapter lists.
package catalog

// Chapter describes a single learning unit. Display fields beyond the
// category tag are irrelevant to progress tracking and intentionally absent.
type Chapter struct {
	ID       int    `json:"id"`
	Title    string `json:"title,omitempty"`
	Category string `json:"category"`
}

// Provider supplies the current ordered chapter list on demand.
type Provider interface {
	Chapters() []Chapter
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func() []Chapter

// Chapters implements Provider.
func (f ProviderFunc) Chapters() []Chapter {
	return f()
}

// StaticProvider wraps a fixed chapter list. Useful for tests and for
// embedding bundled course content.
type StaticProvider struct {
	List []Chapter
}

// Chapters implements Provider.
func (p StaticProvider) Chapters() []Chapter {
	return p.List
}

// Categories returns the distinct category tags in catalog order.
func Categories(chapters []Chapter) []string {
	seen := make(map[string]struct{}, len(chapters))
	out := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		if _, ok := seen[ch.Category]; ok {
			continue
		}
		seen[ch.Category] = struct{}{}
		out = append(out, ch.Category)
	}
	return out
}

// ByCategory groups chapter IDs by category tag, preserving catalog order
// within each group.
func ByCategory(chapters []Chapter) map[string][]int {
	out := make(map[string][]int)
	for _, ch := range chapters {
		out[ch.Category] = append(out[ch.Category], ch.ID)
	}
	return out
}
