package prize

import (
	"fmt"
	"sort"
	"strings"
)

// Prize is a single collectible in the catalog.
type Prize struct {
	Image string `json:"image"`
	Won   bool   `json:"won"`
}

// Subsection maps prize keys to prizes.
type Subsection map[string]Prize

// Section maps subsection names to subsections.
type Section map[string]Subsection

// Catalog is the persisted section → subsection → prize hierarchy.
type Catalog map[string]Section

// Ref addresses one prize in a Catalog.
type Ref struct {
	Section    string `json:"section"`
	Subsection string `json:"subsection"`
	Key        string `json:"key"`
}

// Award is the outcome of a successful collection.
type Award struct {
	Ref
	Image string `json:"image"`
}

// Intn is the slice of a random source Award needs.
type Intn interface {
	IntN(n int) int
}

// Sections returns the section names in natural order, so "Section 2" comes
// before "Section 10". Shelf pages and layouts are indexed by this order.
func (c Catalog) Sections() []string { return sortedKeys(c) }

// Subsections returns the subsection names of section in natural order.
func (c Catalog) Subsections(section string) []string { return sortedKeys(c[section]) }

// Keys returns the prize keys of a subsection in natural order.
func (c Catalog) Keys(section, subsection string) []string {
	return sortedKeys(c[section][subsection])
}

// Get looks up a prize by reference.
func (c Catalog) Get(r Ref) (Prize, bool) {
	p, ok := c[r.Section][r.Subsection][r.Key]
	return p, ok
}

// Unwon lists every prize not yet won, in deterministic order.
func (c Catalog) Unwon() []Ref {
	var refs []Ref
	for _, sec := range c.Sections() {
		for _, sub := range c.Subsections(sec) {
			for _, key := range c.Keys(sec, sub) {
				if !c[sec][sub][key].Won {
					refs = append(refs, Ref{Section: sec, Subsection: sub, Key: key})
				}
			}
		}
	}
	return refs
}

// Award marks one unwon prize as won, chosen uniformly across the whole
// catalog. It reports false and leaves the catalog untouched when every
// prize has been won.
func (c Catalog) Award(rng Intn) (Award, bool) {
	refs := c.Unwon()
	if len(refs) == 0 {
		return Award{}, false
	}
	r := refs[rng.IntN(len(refs))]
	p := c[r.Section][r.Subsection][r.Key]
	p.Won = true
	c[r.Section][r.Subsection][r.Key] = p
	return Award{Ref: r, Image: p.Image}, true
}

// Counts returns the number of won prizes and the catalog total.
func (c Catalog) Counts() (won, total int) {
	for _, sec := range c {
		for _, sub := range sec {
			for _, p := range sub {
				total++
				if p.Won {
					won++
				}
			}
		}
	}
	return won, total
}

// Clone returns a deep copy.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for name, sec := range c {
		s := make(Section, len(sec))
		for subName, sub := range sec {
			ss := make(Subsection, len(sub))
			for k, p := range sub {
				ss[k] = p
			}
			s[subName] = ss
		}
		out[name] = s
	}
	return out
}

// DefaultCatalog builds the stock four-section catalog with nothing won.
func DefaultCatalog() Catalog {
	sizes := []int{3, 5, 3}
	c := make(Catalog)
	for s := 1; s <= 4; s++ {
		sec := make(Section)
		for i, size := range sizes {
			sub := make(Subsection)
			for p := 1; p <= size; p++ {
				key := fmt.Sprintf("prize_%d_%d_%d", s, i+1, p)
				sub[key] = Prize{Image: fmt.Sprintf("images/prizes/%s.png", key)}
			}
			sec[fmt.Sprintf("Shelf %d", i+1)] = sub
		}
		c[fmt.Sprintf("Section %d", s)] = sec
	}
	return c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return naturalLess(keys[i], keys[j]) })
	return keys
}

// naturalLess compares strings with runs of ASCII digits compared by value.
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		da, db := digitPrefix(a), digitPrefix(b)
		if da > 0 && db > 0 {
			na, nb := strings.TrimLeft(a[:da], "0"), strings.TrimLeft(b[:db], "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			if da != db {
				return da < db
			}
			a, b = a[da:], b[db:]
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func digitPrefix(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}
