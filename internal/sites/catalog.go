// Package sites loads the fixed list of valid site identifiers offered in the
// first wizard step.
package sites

import "strings"

// Catalog is an immutable, ordered set of site identifiers.
type Catalog struct {
	ids   []string
	index map[string]struct{}
}

// NewCatalog trims, drops blanks and de-duplicates ids, keeping first-seen order.
func NewCatalog(ids []string) *Catalog {
	c := &Catalog{index: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := c.index[id]; dup {
			continue
		}
		c.index[id] = struct{}{}
		c.ids = append(c.ids, id)
	}
	return c
}

// IDs returns a copy of the identifiers in file order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.ids...)
}

// Contains reports whether id is a known site.
func (c *Catalog) Contains(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[strings.TrimSpace(id)]
	return ok
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}
