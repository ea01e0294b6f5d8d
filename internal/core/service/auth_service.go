package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

const passwordCost = 12

// AuthService implements account lifecycle and principal resolution.
type AuthService struct {
	users  ports.UserRepository
	tokens ports.TokenService
	media  ports.MediaStore
	logger zerolog.Logger
	now    func() time.Time
}

func NewAuthService(users ports.UserRepository, tokens ports.TokenService, media ports.MediaStore, logger zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		media:  media,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleBuyer
	}

	now := s.now()
	user := &domain.User{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      domain.NormalizeEmail(in.Email),
		Role:       role,
		Phone:      strings.TrimSpace(in.Phone),
		Address:    in.Address,
		IsActive:   true,
		IsVerified: false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if user.Address.Country == "" {
		user.Address.Country = domain.DefaultCountry
	}
	if role == domain.RoleSeller {
		user.BusinessInfo = in.BusinessInfo
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, user.Email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), passwordCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(created)
	if err != nil {
		return nil, fmt.Errorf("register: issue token: %w", err)
	}

	s.logger.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Msg("user registered")
	return &ports.AuthResult{Token: token, User: created}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDeactivated
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	user.LastLogin = &now
	if err := s.users.Update(ctx, user.ID, ports.UserChanges{LastLogin: &now}); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("login: issue token: %w", err)
	}
	return &ports.AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDeactivated
	}
	return user, nil
}

// UpdateProfile merges the input into the stored user, not the principal
// passed in, and writes back only the profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, user *domain.User, in ports.UpdateProfileInput) (*domain.User, error) {
	current, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	updated := *current
	changes := ports.UserChanges{}
	if in.FirstName != nil {
		updated.FirstName = strings.TrimSpace(*in.FirstName)
		changes.FirstName = &updated.FirstName
	}
	if in.LastName != nil {
		updated.LastName = strings.TrimSpace(*in.LastName)
		changes.LastName = &updated.LastName
	}
	if in.Phone != nil {
		updated.Phone = strings.TrimSpace(*in.Phone)
		changes.Phone = &updated.Phone
	}
	if in.Address != nil {
		updated.Address = mergeAddress(updated.Address, *in.Address)
		changes.Address = &updated.Address
	}
	if in.BusinessInfo != nil && updated.Role == domain.RoleSeller {
		updated.BusinessInfo = mergeBusinessInfo(updated.BusinessInfo, *in.BusinessInfo)
		changes.BusinessInfo = updated.BusinessInfo
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	var previous *domain.Image
	if in.ProfileImage != nil {
		img, err := s.media.Upload(ctx, ports.MediaFolderProfiles, *in.ProfileImage)
		if err != nil {
			return nil, fmt.Errorf("update profile: upload image: %w", err)
		}
		previous = updated.ProfileImage
		updated.ProfileImage = &img
		changes.ProfileImage = &img
	}

	updated.UpdatedAt = s.now()
	changes.UpdatedAt = updated.UpdatedAt
	if err := s.users.Update(ctx, updated.ID, changes); err != nil {
		if in.ProfileImage != nil {
			s.releaseImage(ctx, updated.ProfileImage.PublicID)
		}
		return nil, err
	}
	if previous != nil && previous.PublicID != "" {
		s.releaseImage(ctx, previous.PublicID)
	}
	return &updated, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return domain.ErrIncorrectPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), passwordCost)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	passwordHash := string(hash)
	return s.users.Update(ctx, user.ID, ports.UserChanges{PasswordHash: &passwordHash, UpdatedAt: s.now()})
}

func (s *AuthService) Deactivate(ctx context.Context, userID, password string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.ErrIncorrectPassword
	}

	inactive := false
	if err := s.users.Update(ctx, user.ID, ports.UserChanges{IsActive: &inactive, UpdatedAt: s.now()}); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID).Msg("account deactivated")
	return nil
}

func (s *AuthService) releaseImage(ctx context.Context, publicID string) {
	if err := s.media.Delete(ctx, publicID); err != nil {
		s.logger.Warn().Err(err).Str("public_id", publicID).Msg("failed to release profile image")
	}
}

func mergeAddress(dst, src domain.Address) domain.Address {
	if src.Street != "" {
		dst.Street = src.Street
	}
	if src.City != "" {
		dst.City = src.City
	}
	if src.State != "" {
		dst.State = src.State
	}
	if src.ZipCode != "" {
		dst.ZipCode = src.ZipCode
	}
	if src.Country != "" {
		dst.Country = src.Country
	}
	return dst
}

func mergeBusinessInfo(dst *domain.BusinessInfo, src domain.BusinessInfo) *domain.BusinessInfo {
	merged := domain.BusinessInfo{}
	if dst != nil {
		merged = *dst
	}
	if src.BusinessName != "" {
		merged.BusinessName = src.BusinessName
	}
	if src.BusinessDescription != "" {
		merged.BusinessDescription = src.BusinessDescription
	}
	if src.BusinessType != "" {
		merged.BusinessType = src.BusinessType
	}
	if src.BusinessLicense != "" {
		merged.BusinessLicense = src.BusinessLicense
	}
	if src.TaxID != "" {
		merged.TaxID = src.TaxID
	}
	return &merged
}
