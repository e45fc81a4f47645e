package catalog

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Chip is one active constraint, rendered for the user and removable on its
// own. Remove is the exact inverse of the action that set the constraint.
type Chip struct {
	Key       string    `json:"key"`
	Dimension Dimension `json:"dimension"`
	Value     string    `json:"value,omitempty"`
	Label     string    `json:"label"`
	Remove    Action    `json:"remove"`
}

var dimensionLabels = map[Dimension]string{
	DimCategory:     "Category",
	DimBrand:        "Brand",
	DimCondition:    "Condition",
	DimFuel:         "Fuel",
	DimTransmission: "Transmission",
	DimLocation:     "Location",
	DimFeature:      "Feature",
	DimStatus:       "Status",
	DimPrice:        "Price",
	DimYear:         "Year",
	DimMileage:      "Mileage",
	DimSearch:       "Search",
	DimWarranty:     "Warranty",
	DimFeatured:     "Featured",
	DimRecency:      "Listed",
}

// ProjectChips lists one chip per non-default constraint: single-selects
// that are not All, each member of a multi-select, ranges that differ from
// their domain, flags that are set, and a recency window. Dimensions the
// profile does not enable produce no chips. Order is stable: search,
// categorical dimensions in display order, ranges, flags, recency.
func ProjectChips(f FilterState, p Profile, b Bounds) []Chip {
	pr := message.NewPrinter(chipLanguage(p))
	var chips []Chip

	if f.Search != "" && len(p.SearchFields) > 0 {
		chips = append(chips, Chip{
			Key:       chipKey(DimSearch, f.Search),
			Dimension: DimSearch,
			Value:     f.Search,
			Label:     fmt.Sprintf("%s: %q", dimensionLabels[DimSearch], f.Search),
			Remove:    SetSearch(""),
		})
	}

	for _, d := range CategoricalDimensions {
		switch p.Mode(d) {
		case ModeSingle:
			v := *f.single(d)
			if v == "" || v == All {
				continue
			}
			chips = append(chips, Chip{
				Key:       chipKey(d, v),
				Dimension: d,
				Value:     v,
				Label:     dimensionLabels[d] + ": " + v,
				Remove:    Select(d, All),
			})
		case ModeMulti:
			for _, v := range *f.multi(d) {
				chips = append(chips, Chip{
					Key:       chipKey(d, v),
					Dimension: d,
					Value:     v,
					Label:     dimensionLabels[d] + ": " + v,
					Remove:    Toggle(d, v),
				})
			}
		}
	}

	for _, d := range RangeDimensions {
		r := *f.rangeFor(d)
		if r == b.For(d) {
			continue
		}
		chips = append(chips, Chip{
			Key:       chipKey(d, ""),
			Dimension: d,
			Label:     dimensionLabels[d] + ": " + formatRange(pr, d, r),
			Remove:    ResetRange(d),
		})
	}

	if f.HasWarranty {
		chips = append(chips, Chip{Key: chipKey(DimWarranty, ""), Dimension: DimWarranty, Label: "With warranty", Remove: SetFlag(DimWarranty, false)})
	}
	if f.Featured {
		chips = append(chips, Chip{Key: chipKey(DimFeatured, ""), Dimension: DimFeatured, Label: "Featured only", Remove: SetFlag(DimFeatured, false)})
	}
	if f.Recency != RecencyAll && f.Recency != "" {
		chips = append(chips, Chip{
			Key:       chipKey(DimRecency, string(f.Recency)),
			Dimension: DimRecency,
			Value:     string(f.Recency),
			Label:     dimensionLabels[DimRecency] + ": " + f.Recency.Label(),
			Remove:    SetRecency(RecencyAll),
		})
	}
	return chips
}

func chipKey(d Dimension, v string) string {
	if v == "" {
		return string(d)
	}
	return string(d) + ":" + v
}

func chipLanguage(p Profile) language.Tag {
	if p.Collation == language.Und {
		return language.English
	}
	return p.Collation
}

func formatRange(pr *message.Printer, d Dimension, r Range) string {
	switch d {
	case DimPrice:
		return pr.Sprintf("$%d - $%d", int64(r.Min), int64(r.Max))
	case DimMileage:
		return pr.Sprintf("%d - %d mi", int64(r.Min), int64(r.Max))
	}
	return fmt.Sprintf("%d - %d", int(r.Min), int(r.Max))
}
