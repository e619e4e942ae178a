package collection

import (
	"strings"
	"sync"
)

// Fallback is the collection used when no other source names one.
const Fallback = "books_rag"

// Sources lists the value each resolution layer contributed.
type Sources struct {
	Override string `json:"override"`
	Declared string `json:"declared"`
	Fallback string `json:"fallback"`
	Resolved string `json:"resolved"`
}

// Resolver picks the vector collection name: explicit override, then the ingestion
// collaborator's declared default, then the fallback. The first Resolve fixes the result
// for the lifetime of the Resolver.
type Resolver struct {
	override string
	declarer Declarer
	fallback string

	once     sync.Once
	declared string
	resolved string
}

// NewResolver creates a Resolver. declarer may be nil; an empty fallback means Fallback.
func NewResolver(override string, declarer Declarer, fallback string) *Resolver {
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		fallback = Fallback
	}
	return &Resolver{override: strings.TrimSpace(override), declarer: declarer, fallback: fallback}
}

// Resolve returns the collection name. Safe for concurrent use.
func (r *Resolver) Resolve() string {
	r.once.Do(func() {
		if r.declarer != nil {
			r.declared = strings.TrimSpace(r.declarer.DefaultCollection())
		}
		switch {
		case r.override != "":
			r.resolved = r.override
		case r.declared != "":
			r.resolved = r.declared
		default:
			r.resolved = r.fallback
		}
	})
	return r.resolved
}

// Sources reports every layer alongside the resolved name.
func (r *Resolver) Sources() Sources {
	resolved := r.Resolve()
	return Sources{
		Override: r.override,
		Declared: r.declared,
		Fallback: r.fallback,
		Resolved: resolved,
	}
}
