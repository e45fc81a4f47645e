// Package domain defines the vehicle listing record, its moderation statuses,
// and the validation gate every record passes before it enters a catalog.
package domain

import "time"

// Vehicle is a normalized, immutable marketplace listing.
type Vehicle struct {
	ID           string    `json:"id"`
	Category     string    `json:"category,omitempty"`
	Brand        string    `json:"brand"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	Price        float64   `json:"price"`
	Mileage      *float64  `json:"mileage,omitempty"`
	Condition    string    `json:"condition,omitempty"`
	FuelType     string    `json:"fuelType,omitempty"`
	Transmission string    `json:"transmission,omitempty"`
	Location     string    `json:"location,omitempty"`
	Features     []string  `json:"features,omitempty"`
	Featured     bool      `json:"isFeatured"`
	Negotiable   bool      `json:"negotiable"`
	HasWarranty  bool      `json:"hasWarranty"`
	Description  string    `json:"description,omitempty"`
	SellerName   string    `json:"sellerName,omitempty"`
	Status       Status    `json:"status,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
}

// HasMileage reports whether the listing carries an odometer reading.
func (v Vehicle) HasMileage() bool { return v.Mileage != nil }

// HasCreatedAt reports whether the listing carries a creation timestamp.
func (v Vehicle) HasCreatedAt() bool { return !v.CreatedAt.IsZero() }

// HasFeature reports whether tag is one of the listing's feature tags.
func (v Vehicle) HasFeature(tag string) bool {
	for _, f := range v.Features {
		if f == tag {
			return true
		}
	}
	return false
}

// Title is the display name used for alphabetical ordering.
func (v Vehicle) Title() string {
	if v.Model == "" {
		return v.Brand
	}
	return v.Brand + " " + v.Model
}

// Status is the admin moderation state of a listing.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusSold     Status = "sold"
)

// ValidStatuses is the set of recognised moderation statuses.
var ValidStatuses = map[Status]bool{
	StatusPending: true, StatusApproved: true, StatusRejected: true, StatusSold: true,
}

// Float64 returns a pointer to v. Handy for building listings with mileage.
func Float64(v float64) *float64 { return &v }
