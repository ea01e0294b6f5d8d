package domain

import (
	"strings"
	"time"
)

// Role is the single role a principal holds.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

// Capability names an action gated by role.
type Capability string

const (
	CapManageListings Capability = "manage_listings"
	CapManageSales    Capability = "manage_sales"
	CapPlaceOrders    Capability = "place_orders"
	CapReview         Capability = "review"
)

// roleCapabilities is the closed set of role grants consulted by every route.
var roleCapabilities = map[Role][]Capability{
	RoleBuyer:  {CapPlaceOrders, CapReview},
	RoleSeller: {CapManageListings, CapManageSales, CapPlaceOrders, CapReview},
}

// Can reports whether the role grants capability c.
func (r Role) Can(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

// RolesWith returns the roles that grant capability c, in a stable order.
func RolesWith(c Capability) []Role {
	var roles []Role
	for _, r := range []Role{RoleBuyer, RoleSeller} {
		if r.Can(c) {
			roles = append(roles, r)
		}
	}
	return roles
}

// BusinessType classifies a seller's business.
type BusinessType string

const (
	BusinessFarm       BusinessType = "farm"
	BusinessBakery     BusinessType = "bakery"
	BusinessRestaurant BusinessType = "restaurant"
	BusinessGrocery    BusinessType = "grocery"
	BusinessArtisan    BusinessType = "artisan"
	BusinessOther      BusinessType = "other"
)

const DefaultCountry = "USA"

// Address is a user's postal address.
type Address struct {
	Street  string `json:"street,omitempty" bson:"street,omitempty"`
	City    string `json:"city,omitempty" bson:"city,omitempty"`
	State   string `json:"state,omitempty" bson:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty" bson:"zip_code,omitempty"`
	Country string `json:"country,omitempty" bson:"country,omitempty"`
}

// BusinessInfo is the public business profile of a seller.
type BusinessInfo struct {
	BusinessName        string       `json:"businessName,omitempty" bson:"business_name,omitempty"`
	BusinessDescription string       `json:"businessDescription,omitempty" bson:"business_description,omitempty"`
	BusinessType        BusinessType `json:"businessType,omitempty" bson:"business_type,omitempty"`
	BusinessLicense     string       `json:"businessLicense,omitempty" bson:"business_license,omitempty"`
	TaxID               string       `json:"taxId,omitempty" bson:"tax_id,omitempty"`
}

// Rating is a running mean over submitted values.
type Rating struct {
	Average float64 `json:"average" bson:"average"`
	Count   int     `json:"count" bson:"count"`
}

// Add folds a new value into the running mean.
func (r Rating) Add(value int) Rating {
	total := r.Average*float64(r.Count) + float64(value)
	count := r.Count + 1
	return Rating{Average: total / float64(count), Count: count}
}

// Image references an object stored on the media host.
type Image struct {
	URL      string `json:"url" bson:"url"`
	PublicID string `json:"publicId" bson:"public_id"`
}

// User models an authenticated actor in the marketplace.
type User struct {
	ID           string        `json:"_id"`
	FirstName    string        `json:"firstName"`
	LastName     string        `json:"lastName"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Role         Role          `json:"role"`
	Phone        string        `json:"phone,omitempty"`
	Address      Address       `json:"address"`
	BusinessInfo *BusinessInfo `json:"businessInfo,omitempty"`
	IsActive     bool          `json:"isActive"`
	IsVerified   bool          `json:"isVerified"`
	Rating       Rating        `json:"rating"`
	ProfileImage *Image        `json:"profileImage,omitempty"`
	LastLogin    *time.Time    `json:"lastLogin,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// OwnedBy reports whether principalID is this user.
func (u *User) OwnedBy(principalID string) bool {
	return u.ID == principalID
}

// Validate checks the role-dependent invariants of a user record.
func (u *User) Validate() error {
	ve := &ValidationError{}
	if !u.Role.Valid() {
		ve.Add("role", "role must be either buyer or seller")
	}
	if u.Role == RoleSeller {
		if u.BusinessInfo == nil || strings.TrimSpace(u.BusinessInfo.BusinessName) == "" {
			ve.Add("businessInfo.businessName", "business name is required for sellers")
		}
		if u.BusinessInfo == nil || u.BusinessInfo.BusinessType == "" {
			ve.Add("businessInfo.businessType", "business type is required for sellers")
		}
	}
	return ve.OrNil()
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserSummary is the public projection of a user attached to listings and orders.
type UserSummary struct {
	ID           string        `json:"_id"`
	FirstName    string        `json:"firstName"`
	LastName     string        `json:"lastName"`
	Email        string        `json:"email,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	BusinessInfo *BusinessInfo `json:"businessInfo,omitempty"`
	Rating       Rating        `json:"rating"`
	ProfileImage *Image        `json:"profileImage,omitempty"`
}

// Summary projects the user into its public summary.
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		Phone:        u.Phone,
		BusinessInfo: u.BusinessInfo,
		Rating:       u.Rating,
		ProfileImage: u.ProfileImage,
	}
}
