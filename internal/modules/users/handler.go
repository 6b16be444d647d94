package users

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/genlayer-foundation/points/internal/apperror"
	"github.com/genlayer-foundation/points/internal/modules/auth"
	"github.com/genlayer-foundation/points/sdk/points/ethaddr"
)

// publicUser is the profile shape exposed to other participants. Email
// and referral data stay private to the owner.
type publicUser struct {
	ID       uint   `json:"id"`
	Address  string `json:"address"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Visible  bool   `json:"visible"`
}

// Handler handles HTTP requests for user profiles.
type Handler struct {
	service UserService
}

// NewHandler creates a new users handler.
func NewHandler(service UserService) *Handler {
	return &Handler{service: service}
}

// Me returns the signed-in user's full profile (GET /api/v1/users/me/).
func (h *Handler) Me(c echo.Context) error {
	user, err := h.service.GetByID(c.Request().Context(), auth.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe edits the signed-in user's profile (PATCH /api/v1/users/me/).
func (h *Handler) UpdateMe(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	user, err := h.service.UpdateProfile(c.Request().Context(), auth.GetUserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// ByAddress returns another participant's public profile
// (GET /api/v1/users/by-address/:address/).
func (h *Handler) ByAddress(c echo.Context) error {
	address := strings.ToLower(c.Param("address"))
	if !ethaddr.Valid(address) {
		return apperror.NewBadRequest("invalid ethereum address")
	}

	user, err := h.service.GetByAddress(c.Request().Context(), address)
	if err != nil {
		return err
	}
	if !user.Visible && user.ID != auth.GetUserID(c) {
		return apperror.NewNotFound("user not found")
	}

	return c.JSON(http.StatusOK, publicUser{
		ID:       user.ID,
		Address:  user.Address,
		Username: user.Username,
		Name:     user.Name,
		Visible:  user.Visible,
	})
}

// ListValidators returns all validator nodes and their operators
// (GET /api/v1/validators/).
func (h *Handler) ListValidators(c echo.Context) error {
	validators, err := h.service.ListValidators(c.Request().Context())
	if err != nil {
		return err
	}
	if validators == nil {
		validators = []Validator{}
	}
	return c.JSON(http.StatusOK, validators)
}
