package handler

import (
	"github.com/ocandle/marketplace/internal/core/domain"
)

// --- Request / Response types ---

type addressRequest struct {
	Street  string `json:"street"  validate:"omitempty,max=200"`
	City    string `json:"city"    validate:"omitempty,max=50"`
	State   string `json:"state"   validate:"omitempty,max=50"`
	ZipCode string `json:"zipCode" validate:"omitempty,max=20"`
	Country string `json:"country" validate:"omitempty,max=50"`
}

func (r *addressRequest) toDomain() domain.Address {
	if r == nil {
		return domain.Address{}
	}
	return domain.Address{Street: r.Street, City: r.City, State: r.State, ZipCode: r.ZipCode, Country: r.Country}
}

type businessInfoRequest struct {
	BusinessName        string `json:"businessName"        validate:"omitempty,min=2,max=100"`
	BusinessDescription string `json:"businessDescription" validate:"omitempty,max=500"`
	BusinessType        string `json:"businessType"        validate:"omitempty,oneof=farm bakery restaurant grocery artisan other"`
	BusinessLicense     string `json:"businessLicense"     validate:"omitempty,max=100"`
	TaxID               string `json:"taxId"               validate:"omitempty,max=50"`
}

func (r *businessInfoRequest) toDomain() *domain.BusinessInfo {
	if r == nil {
		return nil
	}
	return &domain.BusinessInfo{
		BusinessName:        r.BusinessName,
		BusinessDescription: r.BusinessDescription,
		BusinessType:        domain.BusinessType(r.BusinessType),
		BusinessLicense:     r.BusinessLicense,
		TaxID:               r.TaxID,
	}
}

type registerRequest struct {
	FirstName    string               `json:"firstName"    validate:"required,min=2,max=50"`
	LastName     string               `json:"lastName"     validate:"required,min=2,max=50"`
	Email        string               `json:"email"        validate:"required,email"`
	Password     string               `json:"password"     validate:"required,password"`
	Role         string               `json:"role"         validate:"omitempty,oneof=buyer seller"`
	Phone        string               `json:"phone"        validate:"omitempty,min=7,max=20"`
	Address      *addressRequest      `json:"address"`
	BusinessInfo *businessInfoRequest `json:"businessInfo"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// profileRequest is accepted as JSON, or as multipart form fields where
// address and businessInfo hold JSON documents.
type profileRequest struct {
	FirstName    *string              `json:"firstName"    validate:"omitempty,min=2,max=50"`
	LastName     *string              `json:"lastName"     validate:"omitempty,min=2,max=50"`
	Phone        *string              `json:"phone"        validate:"omitempty,min=7,max=20"`
	Address      *addressRequest      `json:"address"`
	BusinessInfo *businessInfoRequest `json:"businessInfo"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,password"`
}

type deleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

type authData struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type userData struct {
	User *domain.User `json:"user"`
}
