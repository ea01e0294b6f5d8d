package ports

import (
	"context"

	"github.com/ocandle/marketplace/internal/core/domain"
)

// RegisterInput carries the data needed to open an account.
type RegisterInput struct {
	FirstName    string
	LastName     string
	Email        string
	Password     string
	Role         domain.Role
	Phone        string
	Address      domain.Address
	BusinessInfo *domain.BusinessInfo
}

// AuthResult is returned by registration and login.
type AuthResult struct {
	Token string
	User  *domain.User
}

// UpdateProfileInput carries a partial profile update. Nil fields are left as is;
// non-empty fields of Address and BusinessInfo are merged into the stored values.
type UpdateProfileInput struct {
	FirstName    *string
	LastName     *string
	Phone        *string
	Address      *domain.Address
	BusinessInfo *domain.BusinessInfo
	ProfileImage *ImageUpload
}

// AuthService covers account lifecycle and principal resolution.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Authenticate verifies a bearer token and loads the active principal behind it.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User, input UpdateProfileInput) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	Deactivate(ctx context.Context, userID, password string) error
}
