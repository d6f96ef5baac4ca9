package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-booking-api/internal/dto"
	"github.com/noah-isme/lesson-booking-api/internal/middleware"
	"github.com/noah-isme/lesson-booking-api/internal/service"
	appErrors "github.com/noah-isme/lesson-booking-api/pkg/errors"
	"github.com/noah-isme/lesson-booking-api/pkg/response"
)

type classBooker interface {
	Book(ctx context.Context, studentID int, req dto.BookingRequest) (*dto.BookingResponse, error)
}

// BookingHandler books lessons for the calling student.
type BookingHandler struct {
	service classBooker
}

// NewBookingHandler constructs the handler.
func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{service: svc}
}

// Create godoc
// @Summary Book lessons
// @Description Books every instant with one teacher. The first booking assigns the teacher to the student.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.BookingRequest true "Instants to book"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	claims := middleware.Claims(c)
	if !claims.IsStudent() {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only students can book lessons"))
		return
	}

	var req dto.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}

	resp, err := h.service.Book(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}
