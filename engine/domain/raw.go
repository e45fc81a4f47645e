package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RawVehicle is a listing as it arrives from a data source, before
// normalization. Every field is optional; Normalize decides what is required.
type RawVehicle struct {
	ID           FlexString  `json:"id"`
	MongoID      FlexString  `json:"_id"`
	Category     string      `json:"category"`
	Brand        string      `json:"brand"`
	Make         string      `json:"make"`
	Model        string      `json:"model"`
	Year         *FlexNumber `json:"year"`
	Price        *FlexNumber `json:"price"`
	Mileage      *FlexNumber `json:"mileage"`
	Condition    string      `json:"condition"`
	FuelType     string      `json:"fuelType"`
	Transmission string      `json:"transmission"`
	Location     string      `json:"location"`
	Features     []string    `json:"features"`
	IsFeatured   bool        `json:"isFeatured"`
	Negotiable   bool        `json:"negotiable"`
	HasWarranty  bool        `json:"hasWarranty"`
	Description  string      `json:"description"`
	SellerName   string      `json:"sellerName"`
	Seller       *RawSeller  `json:"seller"`
	Status       string      `json:"status"`
	CreatedAt    FlexTime    `json:"createdAt"`
}

// RawSeller is the nested seller object some endpoints return.
type RawSeller struct {
	Name string `json:"name"`
}

// FlexString decodes a JSON string or number into a string. Anything else
// decodes to the empty string instead of failing the surrounding document.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			*s = ""
			return nil
		}
		*s = FlexString(v)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err == nil {
		*s = FlexString(b)
		return nil
	}
	*s = ""
	return nil
}

// FlexNumber decodes a JSON number or numeric string. Unparseable input leaves
// Valid false rather than failing the surrounding document.
type FlexNumber struct {
	Value float64
	Valid bool
}

func (n *FlexNumber) UnmarshalJSON(b []byte) error {
	*n = FlexNumber{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return nil
		}
		raw = strings.NewReplacer(",", "", "$", "", " ", "").Replace(v)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	*n = FlexNumber{Value: f, Valid: true}
	return nil
}

// Num builds a valid FlexNumber.
func Num(v float64) *FlexNumber { return &FlexNumber{Value: v, Valid: true} }

func (n *FlexNumber) ok() bool { return n != nil && n.Valid }

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// FlexTime decodes an RFC 3339 string, a date, or Unix milliseconds. Anything
// else decodes to the zero time.
type FlexTime struct{ time.Time }

func (t *FlexTime) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] != '"' {
		if ms, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			t.Time = time.UnixMilli(ms).UTC()
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return nil
}

// Raw converts a normalized listing back to its raw form, for sources that
// store listings and hand them back through Normalize.
func (v Vehicle) Raw() RawVehicle {
	r := RawVehicle{
		ID:           FlexString(v.ID),
		Category:     v.Category,
		Brand:        v.Brand,
		Model:        v.Model,
		Year:         Num(float64(v.Year)),
		Price:        Num(v.Price),
		Condition:    v.Condition,
		FuelType:     v.FuelType,
		Transmission: v.Transmission,
		Location:     v.Location,
		Features:     v.Features,
		IsFeatured:   v.Featured,
		Negotiable:   v.Negotiable,
		HasWarranty:  v.HasWarranty,
		Description:  v.Description,
		SellerName:   v.SellerName,
		Status:       string(v.Status),
		CreatedAt:    FlexTime{v.CreatedAt},
	}
	if v.Mileage != nil {
		r.Mileage = Num(*v.Mileage)
	}
	return r
}
