package prize

// DefaultColumns is the grid width used when no layout is configured for a
// subsection.
const DefaultColumns = 3

// DefaultLayout gives each of the four stock sections a 3/5/3 column layout.
var DefaultLayout = [][]int{{3, 5, 3}, {3, 5, 3}, {3, 5, 3}, {3, 5, 3}}

// Slot is one cell in a shelf grid.
type Slot struct {
	Key   string `json:"key"`
	Image string `json:"image,omitempty"`
	Won   bool   `json:"won"`
	Row   int    `json:"row"`
	Col   int    `json:"col"`
}

// Row is a subsection rendered as a grid.
type Row struct {
	Name    string `json:"name"`
	Columns int    `json:"columns"`
	Slots   []Slot `json:"slots"`
}

// Page is the view of a single section.
type Page struct {
	Section     string `json:"section"`
	Index       int    `json:"index"`
	Count       int    `json:"count"`
	HasPrev     bool   `json:"has_prev"`
	HasNext     bool   `json:"has_next"`
	Subsections []Row  `json:"subsections"`
}

// Shelf pages through catalog sections one at a time. Locked prizes are
// listed without their image.
type Shelf struct {
	catalog Catalog
	layout  [][]int
	page    int
}

// NewShelf opens a shelf on the first section.
func NewShelf(c Catalog, layout [][]int) *Shelf {
	return &Shelf{catalog: c, layout: layout}
}

// PageCount returns the number of sections.
func (s *Shelf) PageCount() int { return len(s.catalog) }

// PageIndex returns the current section index.
func (s *Shelf) PageIndex() int { return s.page }

// Next moves one section right. It reports false at the last section.
func (s *Shelf) Next() bool {
	if s.page >= s.PageCount()-1 {
		return false
	}
	s.page++
	return true
}

// Prev moves one section left. It reports false at the first section.
func (s *Shelf) Prev() bool {
	if s.page <= 0 {
		return false
	}
	s.page--
	return true
}

// Current renders the current section.
func (s *Shelf) Current() Page {
	return s.PageAt(s.page)
}

// PageAt renders section i without moving the shelf. Out of range indexes
// yield an empty page.
func (s *Shelf) PageAt(i int) Page {
	sections := s.catalog.Sections()
	p := Page{Index: i, Count: len(sections)}
	if i < 0 || i >= len(sections) {
		return p
	}
	p.Section = sections[i]
	p.HasPrev = i > 0
	p.HasNext = i < len(sections)-1

	for j, subName := range s.catalog.Subsections(p.Section) {
		cols := s.columns(i, j)
		row := Row{Name: subName, Columns: cols}
		for k, key := range s.catalog.Keys(p.Section, subName) {
			prize := s.catalog[p.Section][subName][key]
			slot := Slot{Key: key, Won: prize.Won, Row: k / cols, Col: k % cols}
			if prize.Won {
				slot.Image = prize.Image
			}
			row.Slots = append(row.Slots, slot)
		}
		p.Subsections = append(p.Subsections, row)
	}
	return p
}

func (s *Shelf) columns(section, sub int) int {
	if section < len(s.layout) && sub < len(s.layout[section]) && s.layout[section][sub] > 0 {
		return s.layout[section][sub]
	}
	return DefaultColumns
}
