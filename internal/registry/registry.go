// Package registry maps block and element kinds to their schema, default
// data and AI hints. The catalogue is built once from static definitions and
// is read-only afterwards.
package registry

import (
	"sort"
	"sync"

	"github.com/blockcanvas/indy/internal/errors"
	"github.com/blockcanvas/indy/internal/jsonutil"
	"github.com/blockcanvas/indy/internal/schema"
)

// BlockKind is the closed set of page-level block types.
type BlockKind string

const (
	KindHero         BlockKind = "hero"
	KindGrid         BlockKind = "grid"
	KindFeatures     BlockKind = "features"
	KindCTA          BlockKind = "cta"
	KindTestimonials BlockKind = "testimonials"
	KindFooter       BlockKind = "footer"
)

// ElementKind is the closed set of element primitives composed inside blocks.
type ElementKind string

const (
	ElementButton  ElementKind = "button"
	ElementText    ElementKind = "text"
	ElementHeading ElementKind = "heading"
	ElementImage   ElementKind = "image"
	ElementAvatar  ElementKind = "avatar"
	ElementBadge   ElementKind = "badge"
)

// BlockDescriptor describes one registered block kind.
type BlockDescriptor struct {
	Kind        BlockKind
	Name        string
	Description string
	// Component names the renderer on the client side.
	Component   string
	Schema      *schema.Schema
	DefaultData map[string]any
	AIHints     map[string]any
}

// Defaults returns a private copy of the default block data.
func (d *BlockDescriptor) Defaults() map[string]any {
	return jsonutil.CloneObject(d.DefaultData)
}

// Hints returns a private copy of the AI hints.
func (d *BlockDescriptor) Hints() map[string]any {
	return jsonutil.CloneObject(d.AIHints)
}

// ElementDescriptor describes one registered element kind.
type ElementDescriptor struct {
	Kind         ElementKind
	Name         string
	Description  string
	Component    string
	Schema       *schema.Schema
	DefaultProps map[string]any
}

// Resolver looks block kinds up by their wire name.
type Resolver interface {
	Resolve(blockType string) (*BlockDescriptor, error)
}

// Registry holds the block and element catalogues.
type Registry struct {
	blocks   map[BlockKind]*BlockDescriptor
	elements map[ElementKind]*ElementDescriptor
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry built from the static catalogue.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := New(builtinBlocks(), builtinElements())
		if err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// New builds a registry. Kinds must be unique.
func New(blocks []*BlockDescriptor, elements []*ElementDescriptor) (*Registry, error) {
	r := &Registry{
		blocks:   make(map[BlockKind]*BlockDescriptor, len(blocks)),
		elements: make(map[ElementKind]*ElementDescriptor, len(elements)),
	}
	for _, b := range blocks {
		if b == nil || b.Kind == "" {
			return nil, errors.InternalErrorf("block descriptor without kind")
		}
		if _, dup := r.blocks[b.Kind]; dup {
			return nil, errors.InternalErrorf("block kind %q registered twice", b.Kind)
		}
		r.blocks[b.Kind] = b
	}
	for _, e := range elements {
		if e == nil || e.Kind == "" {
			return nil, errors.InternalErrorf("element descriptor without kind")
		}
		if _, dup := r.elements[e.Kind]; dup {
			return nil, errors.InternalErrorf("element kind %q registered twice", e.Kind)
		}
		r.elements[e.Kind] = e
	}
	return r, nil
}

// Resolve returns the descriptor for blockType or a NotFound error.
func (r *Registry) Resolve(blockType string) (*BlockDescriptor, error) {
	if d, ok := r.blocks[BlockKind(blockType)]; ok {
		return d, nil
	}
	return nil, errors.NotFoundf("block type %q is not registered", blockType).
		WithContext("block_type", blockType)
}

// Has reports whether blockType is registered.
func (r *Registry) Has(blockType string) bool {
	_, ok := r.blocks[BlockKind(blockType)]
	return ok
}

// Blocks returns all block descriptors sorted by kind.
func (r *Registry) Blocks() []*BlockDescriptor {
	out := make([]*BlockDescriptor, 0, len(r.blocks))
	for _, d := range r.blocks {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// BlockTypes returns the registered block type names sorted.
func (r *Registry) BlockTypes() []string {
	blocks := r.Blocks()
	names := make([]string, len(blocks))
	for i, d := range blocks {
		names[i] = string(d.Kind)
	}
	return names
}

// ResolveElement returns the descriptor for an element kind.
func (r *Registry) ResolveElement(name string) (*ElementDescriptor, error) {
	if d, ok := r.elements[ElementKind(name)]; ok {
		return d, nil
	}
	return nil, errors.NotFoundf("element %q is not registered", name)
}

// Elements returns all element descriptors sorted by kind.
func (r *Registry) Elements() []*ElementDescriptor {
	out := make([]*ElementDescriptor, 0, len(r.elements))
	for _, d := range r.elements {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
