// Package geo resolves free-text country names to continents and ISO3 codes.
package geo

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
)

// Lookup is the name-matching capability the pipeline depends on.
type Lookup interface {
	Continent(name string) (string, bool)
	ISO3(name string) (string, bool)
}

// Continents known to the built-in table.
var Continents = []string{
	"Africa",
	"Antarctica",
	"Asia",
	"Europe",
	"North America",
	"Oceania",
	"South America",
}

// Country is one row of a country table.
type Country struct {
	ISO3      string
	Name      string
	Continent string

	pattern *regexp.Regexp
}

// Table is a Lookup over a fixed list of countries. Matching tries, in
// order: the normalized canonical name, an ISO3 code, then each country's
// alias pattern in table order. The first hit wins.
type Table struct {
	countries []Country
	byName    map[string]int
	byISO     map[string]int
}

//go:embed countries.csv
var countriesCSV []byte

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the table built from the embedded country list.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Parse(bytes.NewReader(countriesCSV))
	})
	return defaultTable, defaultErr
}

// Parse reads a country table with the header iso3,name,continent,regex.
// Patterns are matched against normalized names.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 4
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read country table: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("country table is empty")
	}

	t := &Table{
		byName: make(map[string]int, len(rows)),
		byISO:  make(map[string]int, len(rows)),
	}
	for i, row := range rows[1:] {
		c := Country{
			ISO3:      strings.ToUpper(strings.TrimSpace(row[0])),
			Name:      strings.TrimSpace(row[1]),
			Continent: strings.TrimSpace(row[2]),
		}
		if c.ISO3 == "" || c.Name == "" || c.Continent == "" {
			return nil, fmt.Errorf("country table line %d: iso3, name and continent are required", i+2)
		}
		if expr := strings.TrimSpace(row[3]); expr != "" {
			p, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("country table line %d (%s): %w", i+2, c.ISO3, err)
			}
			c.pattern = p
		}
		if _, dup := t.byISO[c.ISO3]; dup {
			return nil, fmt.Errorf("country table line %d: duplicate iso3 %s", i+2, c.ISO3)
		}

		t.byISO[c.ISO3] = len(t.countries)
		t.byName[Normalize(c.Name)] = len(t.countries)
		t.countries = append(t.countries, c)
	}
	return t, nil
}

// Len returns the number of countries in the table.
func (t *Table) Len() int { return len(t.countries) }

// Find returns the country a free-text name refers to.
func (t *Table) Find(name string) (Country, bool) {
	key := Normalize(name)
	if key == "" {
		return Country{}, false
	}
	if i, ok := t.byName[key]; ok {
		return t.countries[i], true
	}
	if raw := strings.TrimSpace(name); len(raw) == 3 {
		if i, ok := t.byISO[strings.ToUpper(raw)]; ok {
			return t.countries[i], true
		}
	}
	for _, c := range t.countries {
		if c.pattern != nil && c.pattern.MatchString(key) {
			return c, true
		}
	}
	return Country{}, false
}

// Continent implements Lookup.
func (t *Table) Continent(name string) (string, bool) {
	c, ok := t.Find(name)
	return c.Continent, ok
}

// ISO3 implements Lookup.
func (t *Table) ISO3(name string) (string, bool) {
	c, ok := t.Find(name)
	return c.ISO3, ok
}

// MapLookup is a Lookup over explicit name maps. Keys are matched after
// Normalize. Tests and small fixtures use it in place of a full table.
type MapLookup struct {
	continents map[string]string
	codes      map[string]string
}

// NewMapLookup builds a MapLookup; codes may be nil.
func NewMapLookup(continents, codes map[string]string) *MapLookup {
	m := &MapLookup{
		continents: make(map[string]string, len(continents)),
		codes:      make(map[string]string, len(codes)),
	}
	for k, v := range continents {
		m.continents[Normalize(k)] = v
	}
	for k, v := range codes {
		m.codes[Normalize(k)] = v
	}
	return m
}

// Continent implements Lookup.
func (m *MapLookup) Continent(name string) (string, bool) {
	v, ok := m.continents[Normalize(name)]
	return v, ok
}

// ISO3 implements Lookup.
func (m *MapLookup) ISO3(name string) (string, bool) {
	v, ok := m.codes[Normalize(name)]
	return v, ok
}
