// Package tags loads the category -> tag -> storefront id definition and
// exposes it as an immutable lookup table.
package tags

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed tags.yaml
var defaultDefinition []byte

// Category is a named, ordered group of tag names.
type Category struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// Index maps tag display names to storefront tag ids. It is read-only after
// loading and safe for concurrent use.
type Index struct {
	ids        map[string][]int
	names      []string
	categories []Category
}

// Default loads the definition compiled into the binary.
func Default() (*Index, error) {
	return Load(defaultDefinition)
}

// LoadFile loads a definition from disk.
func LoadFile(path string) (*Index, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read tag definition: %w", err)
	}
	return Load(data)
}

// Load parses a YAML definition. Any malformed entry fails the whole load.
func Load(data []byte) (*Index, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tag definition: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, errors.New("tag definition: expected a single document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("tag definition line %d: expected category mapping", root.Line)
	}

	idx := &Index{ids: make(map[string][]int)}
	for i := 0; i+1 < len(root.Content); i += 2 {
		catName, catBody := root.Content[i], root.Content[i+1]
		if catBody.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("category %q line %d: expected tag mapping", catName.Value, catBody.Line)
		}
		cat := Category{Name: catName.Value}
		for j := 0; j+1 < len(catBody.Content); j += 2 {
			tagName, tagBody := catBody.Content[j], catBody.Content[j+1]
			if tagName.Value == "" {
				return nil, fmt.Errorf("category %q line %d: empty tag name", cat.Name, tagName.Line)
			}
			if _, dup := idx.ids[tagName.Value]; dup {
				return nil, fmt.Errorf("tag %q line %d: defined more than once", tagName.Value, tagName.Line)
			}
			ids, err := parseIDs(tagBody)
			if err != nil {
				return nil, fmt.Errorf("tag %q: %w", tagName.Value, err)
			}
			idx.ids[tagName.Value] = ids
			idx.names = append(idx.names, tagName.Value)
			cat.Tags = append(cat.Tags, tagName.Value)
		}
		idx.categories = append(idx.categories, cat)
	}
	return idx, nil
}

func parseIDs(n *yaml.Node) ([]int, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		id, err := parseID(n)
		if err != nil {
			return nil, err
		}
		return []int{id}, nil
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return nil, fmt.Errorf("line %d: empty id list", n.Line)
		}
		ids := make([]int, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: nested id list", c.Line)
			}
			id, err := parseID(c)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	return nil, fmt.Errorf("line %d: expected id or id list", n.Line)
}

func parseID(n *yaml.Node) (int, error) {
	id, err := strconv.Atoi(n.Value)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("line %d: invalid tag id %q", n.Line, n.Value)
	}
	return id, nil
}

// Resolve returns the ids of a tag, or nil for an unknown tag.
func (x *Index) Resolve(name string) []int {
	ids := x.ids[name]
	if ids == nil {
		return nil
	}
	out := make([]int, len(ids))
	copy(out, ids)
	return out
}

// ResolveAll resolves several tags into one deduplicated id list in
// first-seen order. Unknown tags contribute nothing.
func (x *Index) ResolveAll(names []string) []int {
	var out []int
	seen := make(map[int]bool)
	for _, name := range names {
		for _, id := range x.ids[name] {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Has reports whether the tag is defined.
func (x *Index) Has(name string) bool {
	_, ok := x.ids[name]
	return ok
}

// Names returns every tag name ordered by category, then definition order.
func (x *Index) Names() []string {
	out := make([]string, len(x.names))
	copy(out, x.names)
	return out
}

// Categories returns the categories in definition order.
func (x *Index) Categories() []Category {
	out := make([]Category, len(x.categories))
	for i, c := range x.categories {
		out[i] = Category{Name: c.Name, Tags: append([]string(nil), c.Tags...)}
	}
	return out
}
