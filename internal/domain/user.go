// Package domain defines the core interfaces and types for the meal planner.
package domain

import "time"

// Sex is the user-declared sex used for nutrition baselines.
type Sex string

const (
	SexMale   Sex = "MALE"
	SexFemale Sex = "FEMALE"
	SexOther  Sex = "OTHER"
)

// Valid reports whether s is a known Sex value.
func (s Sex) Valid() bool {
	switch s {
	case SexMale, SexFemale, SexOther:
		return true
	}
	return false
}

// User holds authentication and profile data.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`

	FullName    string `json:"fullName"`
	Sex         Sex    `json:"sex"`
	PhoneNumber string `json:"phoneNumber,omitempty"`

	AddressLine1      string `json:"addressLine1"`
	AddressLine2      string `json:"addressLine2,omitempty"`
	City              string `json:"city"`
	StateProvinceCode string `json:"stateProvinceCode"`
	CountryCode       string `json:"countryCode"`
	PostalCode        string `json:"postalCode"`

	// DietFilter is an optional CEL expression over food fields that
	// narrows the catalog to foods the user will eat.
	DietFilter string `json:"dietFilter,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
