package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sashasoft90/c3po/internal/core/domain"
	"github.com/sashasoft90/c3po/internal/transport/http/middleware"
	"github.com/sashasoft90/c3po/internal/usecase"
)

// UserHandler exposes profile and account management endpoints.
type UserHandler struct {
	users *usecase.UserService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users *usecase.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRoutes binds user routes. All routes require authentication; the
// admin-only routes additionally require the admin role.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	r.GET("/me", h.getMe)
	r.PATCH("/me", h.updateMe)
	r.GET("", adminOnly, h.list)
	r.GET("/:id", adminOnly, h.getByID)
}

// GetMe godoc
// @Summary Return the authenticated user's profile
// @Tags Users
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/users/me [get]
func (h *UserHandler) getMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(user))
}

// UpdateMe godoc
// @Summary Update the authenticated user's profile
// @Tags Users
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Profile changes"
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/users/me [patch]
func (h *UserHandler) updateMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	updated, err := h.users.UpdateProfile(c.Request.Context(), user.ID, domain.UserUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "invalid profile payload"},
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(updated))
}

// List godoc
// @Summary List user accounts
// @Tags Users
// @Produce json
// @Param skip query int false "Rows to skip" default(0)
// @Param limit query int false "Page size" default(100)
// @Success 200 {object} UserListResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/users [get]
func (h *UserHandler) list(c *gin.Context) {
	skip, limit := paginationParams(c, 100)

	users, err := h.users.ListUsers(c.Request.Context(), skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list users"))
		return
	}

	resp := UserListResponse{
		Users: make([]UserResponse, 0, len(users)),
		Skip:  skip,
		Limit: limit,
	}
	for i := range users {
		resp.Users = append(resp.Users, NewUserResponse(&users[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary Fetch a user account by id
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user id"))
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUserNotFound):
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "user not found"))
		case errors.Is(err, usecase.ErrInactiveAccount):
			c.JSON(http.StatusForbidden, NewErrorResponse(c, "account is not active"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to fetch user"))
		}
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(user))
}

// paginationParams reads skip/limit query values, clamping limit to the
// provided default when missing or out of range.
func paginationParams(c *gin.Context, defaultLimit int) (int, int) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		skip = 0
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 || limit > 1000 {
		limit = defaultLimit
	}

	return skip, limit
}
