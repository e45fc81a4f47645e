package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

const screensYAML = `
screens:
  - name: catalog
    facetSource: filtered
    modes:
      condition: single
      status: single
    collation: de
  - name: reels
    modes:
      category: single
      brand: multi
    searchFields: [brand, model]
    pageSizes: [6, 12]
    bounds:
      price: {min: 0, max: 250000}
`

func TestLoadProfilesOverridesAndAdds(t *testing.T) {
	got, err := LoadProfiles(strings.NewReader(screensYAML), BuiltinProfiles())
	require.NoError(t, err)
	require.Len(t, got, 4)

	cat := got["catalog"]
	assert.Equal(t, FacetsFiltered, cat.FacetSource)
	assert.Equal(t, ModeSingle, cat.Mode(DimCondition))
	assert.Equal(t, ModeSingle, cat.Mode(DimStatus))
	assert.Equal(t, ModeMulti, cat.Mode(DimBrand), "unset modes keep the built-in value")
	assert.Equal(t, language.German, cat.Collation)
	assert.Equal(t, DefaultPageSizes, cat.PageSizes)

	reels := got["reels"]
	assert.Equal(t, []SearchField{FieldBrand, FieldModel}, reels.SearchFields)
	assert.Equal(t, 6, reels.defaultPageSize())
	assert.Equal(t, Range{Min: 0, Max: 250000}, reels.Bounds.Price)
	assert.Equal(t, ModeOff, reels.Mode(DimLocation))

	assert.Equal(t, ModeMulti, CatalogProfile().Mode(DimCondition), "built-ins are not modified")
}

func TestLoadProfilesRejectsBadScreens(t *testing.T) {
	cases := map[string]string{
		"bad mode":        "screens:\n  - name: x\n    modes: {brand: sometimes}\n",
		"mode mismatch":   "screens:\n  - name: x\n    modes: {category: multi}\n",
		"unknown key":     "screens:\n  - name: x\n    colour: red\n",
		"no name":         "screens:\n  - facetSource: full\n",
		"bad field":       "screens:\n  - name: x\n    searchFields: [vin]\n",
		"bad collation":   "screens:\n  - name: x\n    collation: \"not a tag!\"\n",
		"bad default":     "screens:\n  - name: x\n    pageSizes: [10]\n    defaultPageSize: 20\n",
		"inverted bounds": "screens:\n  - name: x\n    bounds:\n      price: {min: 50000, max: 100}\n",
		"negative bounds": "screens:\n  - name: x\n    bounds:\n      mileage: {min: -5, max: 100}\n",
		"min only bound":  "screens:\n  - name: x\n    bounds:\n      year: {min: 1990}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadProfiles(strings.NewReader(doc), BuiltinProfiles())
			assert.Error(t, err)
		})
	}
}

func TestLoadProfilesEmptyFile(t *testing.T) {
	got, err := LoadProfiles(strings.NewReader(""), BuiltinProfiles())
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestLoadProfilesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(screensYAML), 0o600))

	got, err := LoadProfilesFile(path, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = LoadProfilesFile(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
