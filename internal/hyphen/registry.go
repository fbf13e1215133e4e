package hyphen

import (
	"fmt"
	"sync"

	"golang.org/x/text/language"
)

// Registry maps languages to hyphenators. Lookups use BCP 47 matching, so
// a hyphenator registered for "en" also serves "en-GB".
type Registry struct {
	mu       sync.RWMutex
	tags     []language.Tag
	entries  []Hyphenator
	matcher  language.Matcher
	fallback Hyphenator
}

// NewRegistry creates a registry. fallback may be nil, in which case
// lookups for unknown languages fail with ErrNoHyphenator.
func NewRegistry(fallback Hyphenator) *Registry {
	return &Registry{fallback: fallback}
}

// Register associates h with the language tag lang, replacing any
// previous registration for the same tag.
func (r *Registry) Register(lang string, h Hyphenator) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidLanguage, lang, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, t := range r.tags {
		if t == tag {
			r.entries[i] = h
			return nil
		}
	}
	r.tags = append(r.tags, tag)
	r.entries = append(r.entries, h)
	r.matcher = language.NewMatcher(r.tags)
	return nil
}

// Lookup returns the hyphenator best matching lang.
func (r *Registry) Lookup(lang string) (Hyphenator, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidLanguage, lang, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.matcher != nil {
		_, index, confidence := r.matcher.Match(tag)
		if confidence != language.No {
			return r.entries[index], nil
		}
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoHyphenator, lang)
}

// Languages returns the registered language tags in registration order.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.tags))
	for i, t := range r.tags {
		out[i] = t.String()
	}
	return out
}
