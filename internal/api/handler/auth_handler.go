package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/api/metrics"
	"github.com/ocandle/marketplace/internal/api/middleware"
	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  Response{data=authData}
// @Failure      400   {object}  ErrorResponse
// @Failure      429   {object}  ErrorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Password:     req.Password,
		Role:         domain.Role(req.Role),
		Phone:        req.Phone,
		Address:      req.Address.toDomain(),
		BusinessInfo: req.BusinessInfo.toDomain(),
	})
	if err != nil {
		return err
	}

	return created(c, "User registered successfully", authData{Token: result.Token, User: result.User})
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  Response{data=authData}
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      429   {object}  ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			metrics.AuthFailuresTotal.WithLabelValues("credentials").Inc()
		case errors.Is(err, domain.ErrAccountDeactivated):
			metrics.AuthFailuresTotal.WithLabelValues("deactivated").Inc()
			return echo.NewHTTPError(http.StatusUnauthorized, "Account has been deactivated. Please contact support.").SetInternal(err)
		}
		return err
	}

	return ok(c, "Login successful", authData{Token: result.Token, User: result.User})
}

// Logout acknowledges a logout. Tokens are stateless; clients discard them.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response
// @Failure      401  {object}  ErrorResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{Name: middleware.TokenCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	return ok(c, "Logout successful. Please remove the token from client storage.", nil)
}

// Me returns the authenticated principal.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response{data=userData}
// @Failure      401  {object}  ErrorResponse
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	return ok(c, "", userData{User: user})
}

// UpdateProfile merges profile fields and optionally replaces the profile image.
//
// @Summary      Update profile
// @Tags         auth
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        body          body      profileRequest  false  "Profile fields (JSON body)"
// @Param        profileImage  formData  file            false  "Profile image, 2MB max"
// @Success      200           {object}  Response{data=userData}
// @Failure      400           {object}  ErrorResponse
// @Failure      401           {object}  ErrorResponse
// @Router       /api/auth/profile [put]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}

	req, err := bindProfile(c)
	if err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	images, err := readImages(c, profileImageField)
	if err != nil {
		return err
	}

	input := ports.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}
	if req.Address != nil {
		addr := req.Address.toDomain()
		input.Address = &addr
	}
	input.BusinessInfo = req.BusinessInfo.toDomain()
	if len(images) > 0 {
		input.ProfileImage = &images[0]
	}

	updated, err := h.authService.UpdateProfile(c.Request().Context(), user, input)
	if err != nil {
		return err
	}
	return ok(c, "Profile updated successfully", userData{User: updated})
}

// ChangePassword replaces the password after checking the current one.
//
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  Response
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Router       /api/auth/change-password [put]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.ChangePassword(c.Request().Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return ok(c, "Password changed successfully", nil)
}

// DeleteAccount deactivates the principal's account.
//
// @Summary      Deactivate account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      deleteAccountRequest  true  "Password confirmation"
// @Success      200   {object}  Response
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Router       /api/auth/account [delete]
func (h *AuthHandler) DeleteAccount(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	var req deleteAccountRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.Deactivate(c.Request().Context(), user.ID, req.Password); err != nil {
		if errors.Is(err, domain.ErrIncorrectPassword) {
			return echo.NewHTTPError(http.StatusBadRequest, "Password is incorrect").SetInternal(err)
		}
		return err
	}
	return ok(c, "Account deactivated successfully", nil)
}

func bindProfile(c echo.Context) (*profileRequest, error) {
	req := &profileRequest{}
	if !isMultipart(c) {
		if err := c.Bind(req); err != nil {
			return nil, invalidPayload(err)
		}
		return req, nil
	}

	values, err := formValues(c)
	if err != nil {
		return nil, err
	}
	req.FirstName = formString(values, "firstName")
	req.LastName = formString(values, "lastName")
	req.Phone = formString(values, "phone")

	var addr addressRequest
	if found, err := formJSON(values, "address", &addr); err != nil {
		return nil, err
	} else if found {
		req.Address = &addr
	}
	var info businessInfoRequest
	if found, err := formJSON(values, "businessInfo", &info); err != nil {
		return nil, err
	} else if found {
		req.BusinessInfo = &info
	}
	return req, nil
}
