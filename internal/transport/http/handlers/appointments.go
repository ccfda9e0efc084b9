package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sashasoft90/c3po/internal/core/domain"
	"github.com/sashasoft90/c3po/internal/transport/http/middleware"
	"github.com/sashasoft90/c3po/internal/usecase"
)

// AppointmentHandler exposes appointment scheduling endpoints.
type AppointmentHandler struct {
	appointments *usecase.AppointmentService
}

// NewAppointmentHandler constructs AppointmentHandler.
func NewAppointmentHandler(appointments *usecase.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// RegisterRoutes binds appointment routes. All routes require authentication.
func (h *AppointmentHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.create)
	r.GET("", h.list)
	r.GET("/:id", h.get)
	r.PATCH("/:id", h.update)
	r.DELETE("/:id", h.delete)
}

var appointmentErrorCases = []ErrorCase{
	{Err: usecase.ErrAppointmentNotFound, Status: http.StatusNotFound, Message: "appointment not found"},
	{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "operation not permitted"},
	{Err: usecase.ErrInvalidTimeRange, Status: http.StatusBadRequest, Message: "end time must be after start time"},
	{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "invalid appointment payload"},
}

// Create godoc
// @Summary Schedule a new appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param request body CreateAppointmentRequest true "Appointment payload"
// @Success 201 {object} AppointmentResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/appointments [post]
func (h *AppointmentHandler) create(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid appointment payload"))
		return
	}

	created, err := h.appointments.Create(c.Request.Context(), actor, usecase.CreateAppointmentInput{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Notes:       req.Notes,
	})
	if err != nil {
		RespondWithMappedError(c, err, appointmentErrorCases, http.StatusInternalServerError, "failed to create appointment")
		return
	}

	c.JSON(http.StatusCreated, NewAppointmentResponse(created))
}

// List godoc
// @Summary List appointments for a user
// @Description Staff and admins may pass user_id to list another user's
// @Description appointments; regular users always see their own.
// @Tags Appointments
// @Produce json
// @Param user_id query int false "Owner to list (staff/admin only)"
// @Param skip query int false "Rows to skip" default(0)
// @Param limit query int false "Page size" default(100)
// @Success 200 {object} AppointmentListResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/appointments [get]
func (h *AppointmentHandler) list(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	ownerID := actor.ID
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user_id"))
			return
		}
		ownerID = parsed
	}

	skip, limit := paginationParams(c, 100)

	appointments, err := h.appointments.List(c.Request.Context(), actor, ownerID, skip, limit)
	if err != nil {
		RespondWithMappedError(c, err, appointmentErrorCases, http.StatusInternalServerError, "failed to list appointments")
		return
	}

	resp := AppointmentListResponse{
		Appointments: make([]AppointmentResponse, 0, len(appointments)),
		Skip:         skip,
		Limit:        limit,
	}
	for i := range appointments {
		resp.Appointments = append(resp.Appointments, NewAppointmentResponse(&appointments[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Fetch an appointment by id
// @Tags Appointments
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} AppointmentResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/appointments/{id} [get]
func (h *AppointmentHandler) get(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	appointment, err := h.appointments.Get(c.Request.Context(), actor, id)
	if err != nil {
		RespondWithMappedError(c, err, appointmentErrorCases, http.StatusInternalServerError, "failed to fetch appointment")
		return
	}

	c.JSON(http.StatusOK, NewAppointmentResponse(appointment))
}

// Update godoc
// @Summary Update an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path int true "Appointment ID"
// @Param request body UpdateAppointmentRequest true "Appointment changes"
// @Success 200 {object} AppointmentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/appointments/{id} [patch]
func (h *AppointmentHandler) update(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid appointment payload"))
		return
	}

	update := domain.AppointmentUpdate{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Notes:       req.Notes,
	}
	if req.Status != nil {
		status := domain.AppointmentStatus(*req.Status)
		update.Status = &status
	}

	updated, err := h.appointments.Update(c.Request.Context(), actor, id, update)
	if err != nil {
		RespondWithMappedError(c, err, appointmentErrorCases, http.StatusInternalServerError, "failed to update appointment")
		return
	}

	c.JSON(http.StatusOK, NewAppointmentResponse(updated))
}

// Delete godoc
// @Summary Delete an appointment
// @Tags Appointments
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/appointments/{id} [delete]
func (h *AppointmentHandler) delete(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	if err := h.appointments.Delete(c.Request.Context(), actor, id); err != nil {
		RespondWithMappedError(c, err, appointmentErrorCases, http.StatusInternalServerError, "failed to delete appointment")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "appointment deleted"})
}

func (h *AppointmentHandler) actorAndID(c *gin.Context) (*domain.User, int64, bool) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return nil, 0, false
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid appointment id"))
		return nil, 0, false
	}

	return actor, id, true
}
