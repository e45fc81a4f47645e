package catalog

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts "off", "single" or "multi".
func (m *SelectMode) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	mode, err := ParseSelectMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// screenFile is the YAML layout of a screens file:
//
//	screens:
//	  - name: catalog
//	    facetSource: filtered
//	    modes: {condition: single}
//	    pageSizes: [12, 24, 48]
type screenFile struct {
	Screens []screenDoc `yaml:"screens"`
}

type screenDoc struct {
	Name            string                   `yaml:"name"`
	Modes           map[Dimension]SelectMode `yaml:"modes"`
	SearchFields    []SearchField            `yaml:"searchFields"`
	FacetSource     FacetSource              `yaml:"facetSource"`
	PageSizes       []int                    `yaml:"pageSizes"`
	DefaultPageSize int                      `yaml:"defaultPageSize"`
	Collation       string                   `yaml:"collation"`
	Bounds          *struct {
		Price   *Range `yaml:"price"`
		Year    *Range `yaml:"year"`
		Mileage *Range `yaml:"mileage"`
	} `yaml:"bounds"`
}

// LoadProfiles reads screen profiles from YAML on top of base. A screen
// named like a base profile starts from it and overrides only the keys it
// sets; mode entries are merged per dimension. Every resulting profile is
// validated.
func LoadProfiles(r io.Reader, base map[string]Profile) (map[string]Profile, error) {
	var doc screenFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("catalog: decode screens: %w", err)
	}

	out := make(map[string]Profile, len(base)+len(doc.Screens))
	for name, p := range base {
		out[name] = p
	}
	for i, sd := range doc.Screens {
		if sd.Name == "" {
			return nil, fmt.Errorf("catalog: screen #%d has no name", i)
		}
		p, err := sd.apply(out[sd.Name])
		if err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out[p.Name] = p
	}
	return out, nil
}

// LoadProfilesFile is LoadProfiles over the named file.
func LoadProfilesFile(path string, base map[string]Profile) (map[string]Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open screens: %w", err)
	}
	defer f.Close()
	return LoadProfiles(f, base)
}

func (sd screenDoc) apply(p Profile) (Profile, error) {
	p.Name = sd.Name
	if len(sd.Modes) > 0 {
		modes := make(map[Dimension]SelectMode, len(p.Modes)+len(sd.Modes))
		for d, m := range p.Modes {
			modes[d] = m
		}
		for d, m := range sd.Modes {
			modes[d] = m
		}
		p.Modes = modes
	}
	if sd.SearchFields != nil {
		p.SearchFields = sd.SearchFields
	}
	if sd.FacetSource != "" {
		p.FacetSource = sd.FacetSource
	}
	if sd.PageSizes != nil {
		p.PageSizes = sd.PageSizes
		if sd.DefaultPageSize == 0 {
			p.DefaultPageSize = 0
		}
	}
	if sd.DefaultPageSize != 0 {
		p.DefaultPageSize = sd.DefaultPageSize
	}
	if sd.Collation != "" {
		tag, err := language.Parse(sd.Collation)
		if err != nil {
			return p, fmt.Errorf("catalog: screen %q: collation: %w", sd.Name, err)
		}
		p.Collation = tag
	}
	if b := sd.Bounds; b != nil {
		if b.Price != nil {
			p.Bounds.Price = *b.Price
		}
		if b.Year != nil {
			p.Bounds.Year = *b.Year
		}
		if b.Mileage != nil {
			p.Bounds.Mileage = *b.Mileage
		}
	}
	return p, nil
}
