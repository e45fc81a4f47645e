package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Normalize turns a raw listing into a Vehicle. It fails with a
// *ValidationError when an identifying field (id, brand, model, price, year)
// is missing or a numeric field is out of range; optional fields that do not
// parse are dropped rather than failing the record.
func Normalize(raw RawVehicle, now time.Time) (Vehicle, error) {
	id := strings.TrimSpace(string(raw.ID))
	if id == "" {
		id = strings.TrimSpace(string(raw.MongoID))
	}
	if id == "" {
		return Vehicle{}, NewValidationError("id", "", ErrMissingField)
	}

	brand := raw.Brand
	if strings.TrimSpace(brand) == "" {
		brand = raw.Make
	}
	brand = CanonicalBrand(brand)
	if brand == "" {
		return Vehicle{}, NewValidationError("brand", id, ErrMissingField)
	}

	model := strings.TrimSpace(raw.Model)
	if model == "" {
		return Vehicle{}, NewValidationError("model", id, ErrMissingField)
	}

	if !raw.Price.ok() {
		return Vehicle{}, NewValidationError("price", id, ErrMissingField)
	}
	if !raw.Year.ok() {
		return Vehicle{}, NewValidationError("year", id, ErrMissingField)
	}
	if y := raw.Year.Value; y != math.Trunc(y) {
		return Vehicle{}, NewValidationError("year", formatFloat(y), ErrFractionalYear)
	}

	v := Vehicle{
		ID:           id,
		Category:     strings.TrimSpace(raw.Category),
		Brand:        brand,
		Model:        model,
		Year:         int(raw.Year.Value),
		Price:        raw.Price.Value,
		Condition:    strings.TrimSpace(raw.Condition),
		FuelType:     strings.TrimSpace(raw.FuelType),
		Transmission: strings.TrimSpace(raw.Transmission),
		Location:     strings.TrimSpace(raw.Location),
		Features:     cleanTags(raw.Features),
		Featured:     raw.IsFeatured,
		Negotiable:   raw.Negotiable,
		HasWarranty:  raw.HasWarranty,
		Description:  strings.TrimSpace(raw.Description),
		SellerName:   strings.TrimSpace(raw.SellerName),
		CreatedAt:    raw.CreatedAt.Time,
	}
	if v.SellerName == "" && raw.Seller != nil {
		v.SellerName = strings.TrimSpace(raw.Seller.Name)
	}
	if raw.Mileage.ok() {
		m := raw.Mileage.Value
		v.Mileage = &m
	}
	if st, err := ParseStatus(raw.Status); err == nil {
		v.Status = st
	}

	if err := ValidateVehicle(v, now); err != nil {
		return Vehicle{}, err
	}
	return v, nil
}

// ValidateVehicle checks the invariants every stored listing must hold.
func ValidateVehicle(v Vehicle, now time.Time) error {
	if v.ID == "" {
		return NewValidationError("id", "", ErrMissingField)
	}
	if v.Brand == "" {
		return NewValidationError("brand", v.ID, ErrMissingField)
	}
	if v.Model == "" {
		return NewValidationError("model", v.ID, ErrMissingField)
	}
	if v.Price < 0 || math.IsNaN(v.Price) || math.IsInf(v.Price, 0) {
		return NewValidationError("price", formatFloat(v.Price), ErrNegativeValue)
	}
	if v.Mileage != nil && (*v.Mileage < 0 || math.IsNaN(*v.Mileage) || math.IsInf(*v.Mileage, 0)) {
		return NewValidationError("mileage", formatFloat(*v.Mileage), ErrNegativeValue)
	}
	if v.Year < MinModelYear || v.Year > MaxModelYear(now) {
		return NewValidationError("year", fmt.Sprintf("%d", v.Year), ErrYearOutOfRange)
	}
	if v.Status != "" && !ValidStatuses[v.Status] {
		return NewValidationError("status", string(v.Status), ErrUnknownStatus)
	}
	return nil
}

// ParseStatus parses a moderation status case-insensitively. The empty string
// parses to the empty status.
func ParseStatus(s string) (Status, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	st := Status(s)
	if !ValidStatuses[st] {
		return "", NewValidationError("status", s, ErrUnknownStatus)
	}
	return st, nil
}

// cleanTags trims tags, drops empties, and removes duplicates preserving order.
func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
