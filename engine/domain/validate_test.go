package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func decodeRaw(t *testing.T, js string) RawVehicle {
	t.Helper()
	var raw RawVehicle
	if err := json.Unmarshal([]byte(js), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return raw
}

func TestNormalize_Valid(t *testing.T) {
	raw := decodeRaw(t, `{
		"_id": "abc123", "brand": " toyota ", "model": "Camry", "year": 2020,
		"price": "18,500", "mileage": 42000, "condition": "used",
		"features": ["Sunroof", " ", "Sunroof", "Bluetooth"],
		"seller": {"name": "Ana"}, "status": "Approved",
		"createdAt": "2026-10-01T08:00:00Z"
	}`)
	v, err := Normalize(raw, testNow)
	if err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	if v.ID != "abc123" {
		t.Errorf("expected _id fallback, got %q", v.ID)
	}
	if v.Brand != "Toyota" {
		t.Errorf("expected canonical brand Toyota, got %q", v.Brand)
	}
	if v.Price != 18500 {
		t.Errorf("expected price 18500, got %v", v.Price)
	}
	if v.Mileage == nil || *v.Mileage != 42000 {
		t.Errorf("expected mileage 42000, got %v", v.Mileage)
	}
	if len(v.Features) != 2 || v.Features[0] != "Sunroof" || v.Features[1] != "Bluetooth" {
		t.Errorf("unexpected features %v", v.Features)
	}
	if v.SellerName != "Ana" {
		t.Errorf("expected nested seller name, got %q", v.SellerName)
	}
	if v.Status != StatusApproved {
		t.Errorf("expected approved, got %q", v.Status)
	}
	if !v.HasCreatedAt() || v.CreatedAt.Day() != 1 {
		t.Errorf("unexpected createdAt %v", v.CreatedAt)
	}
}

func TestNormalize_MissingRequired(t *testing.T) {
	cases := map[string]string{
		"id":    `{"brand":"Ford","model":"F-150","year":2020,"price":1}`,
		"brand": `{"id":"1","model":"F-150","year":2020,"price":1}`,
		"model": `{"id":"1","brand":"Ford","year":2020,"price":1}`,
		"price": `{"id":"1","brand":"Ford","model":"F-150","year":2020,"price":"call me"}`,
		"year":  `{"id":"1","brand":"Ford","model":"F-150","price":1}`,
	}
	for field, js := range cases {
		_, err := Normalize(decodeRaw(t, js), testNow)
		if !errors.Is(err, ErrMissingField) {
			t.Errorf("%s: expected ErrMissingField, got %v", field, err)
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != field {
			t.Errorf("%s: expected field %q in %v", field, field, err)
		}
	}
}

func TestNormalize_MakeAlias(t *testing.T) {
	v, err := Normalize(decodeRaw(t, `{"id":7,"make":"chevy","model":"Tahoe","year":2019,"price":30000}`), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.ID != "7" || v.Brand != "Chevrolet" {
		t.Fatalf("got id=%q brand=%q", v.ID, v.Brand)
	}
}

func TestNormalize_UnknownStatusDropped(t *testing.T) {
	v, err := Normalize(decodeRaw(t, `{"id":"1","brand":"Kia","model":"K5","year":2022,"price":1,"status":"archived"}`), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Status != "" {
		t.Fatalf("expected empty status, got %q", v.Status)
	}
}

func TestNormalize_FractionalYearRejected(t *testing.T) {
	for _, year := range []string{`2020.9`, `"2020.5"`} {
		_, err := Normalize(decodeRaw(t, `{"id":"1","brand":"Kia","model":"K5","year":`+year+`,"price":1}`), testNow)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != "year" || !errors.Is(err, ErrFractionalYear) {
			t.Errorf("year %s: expected ErrFractionalYear on year, got %v", year, err)
		}
	}
	if _, err := Normalize(decodeRaw(t, `{"id":"1","brand":"Kia","model":"K5","year":2020.0,"price":1}`), testNow); err != nil {
		t.Errorf("whole year written as 2020.0 should load, got %v", err)
	}
}

func TestValidateVehicle_YearOutOfRange(t *testing.T) {
	base := Vehicle{ID: "1", Brand: "Toyota", Model: "Camry", Price: 1}
	for _, year := range []int{1899, 2028} {
		base.Year = year
		if err := ValidateVehicle(base, testNow); !errors.Is(err, ErrYearOutOfRange) {
			t.Errorf("year %d: expected ErrYearOutOfRange, got %v", year, err)
		}
	}
	base.Year = 2027
	if err := ValidateVehicle(base, testNow); err != nil {
		t.Errorf("next model year should be valid, got %v", err)
	}
}

func TestValidateVehicle_Negative(t *testing.T) {
	v := Vehicle{ID: "1", Brand: "Toyota", Model: "Camry", Year: 2020, Price: -1}
	if err := ValidateVehicle(v, testNow); !errors.Is(err, ErrNegativeValue) {
		t.Errorf("expected ErrNegativeValue for price, got %v", err)
	}
	v.Price = 10
	v.Mileage = Float64(-5)
	if err := ValidateVehicle(v, testNow); !errors.Is(err, ErrNegativeValue) {
		t.Errorf("expected ErrNegativeValue for mileage, got %v", err)
	}
}

func TestFlexDecoding(t *testing.T) {
	var n FlexNumber
	if err := json.Unmarshal([]byte(`"$1,200"`), &n); err != nil || !n.Valid || n.Value != 1200 {
		t.Fatalf("expected 1200, got %+v err=%v", n, err)
	}
	if err := json.Unmarshal([]byte(`{}`), &n); err != nil || n.Valid {
		t.Fatalf("object should decode as invalid, got %+v err=%v", n, err)
	}

	var ft FlexTime
	if err := json.Unmarshal([]byte(`1700000000000`), &ft); err != nil || ft.IsZero() {
		t.Fatalf("expected unix millis to parse, got %v err=%v", ft, err)
	}
	if err := json.Unmarshal([]byte(`"yesterday"`), &ft); err != nil || !ft.IsZero() {
		t.Fatalf("expected zero time, got %v err=%v", ft, err)
	}

	var s FlexString
	if err := json.Unmarshal([]byte(`true`), &s); err != nil || s != "" {
		t.Fatalf("expected empty, got %q err=%v", s, err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("year", "1800", ErrYearOutOfRange)
	want := `validation: year out of range: year (value="1800")`
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestCanonicalBrand(t *testing.T) {
	cases := map[string]string{
		"bmw":           "BMW",
		" VW ":          "Volkswagen",
		"Lada":          "Lada",
		"mercedes-benz": "Mercedes-Benz",
	}
	for in, want := range cases {
		if got := CanonicalBrand(in); got != want {
			t.Errorf("CanonicalBrand(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVehicleRawRoundTrip(t *testing.T) {
	v := Vehicle{
		ID: "r1", Category: "suv", Brand: "Subaru", Model: "Outback", Year: 2021, Price: 27500,
		Mileage: Float64(30100), Condition: "used", Features: []string{"AWD", "Roof rack"},
		Featured: true, HasWarranty: true, SellerName: "Peak Auto", Status: StatusSold,
		CreatedAt: testNow.Add(-time.Hour),
	}
	got, err := Normalize(v.Raw(), testNow)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("round trip changed the listing:\n got %+v\nwant %+v", got, v)
	}

	v.Mileage = nil
	if raw := v.Raw(); raw.Mileage != nil {
		t.Fatalf("missing mileage should stay missing, got %+v", raw.Mileage)
	}
}
