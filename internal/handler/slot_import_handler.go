package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-booking-api/internal/dto"
	"github.com/noah-isme/lesson-booking-api/internal/service"
	appErrors "github.com/noah-isme/lesson-booking-api/pkg/errors"
	"github.com/noah-isme/lesson-booking-api/pkg/response"
)

const maxCalendarSize = 1 << 20

type slotImporter interface {
	Import(ctx context.Context, teacherID int, r io.Reader) (*dto.SlotImportResponse, error)
}

// SlotImportHandler replaces a teacher's slots from an iCalendar upload.
type SlotImportHandler struct {
	service slotImporter
}

// NewSlotImportHandler constructs the handler.
func NewSlotImportHandler(svc *service.SlotImportService) *SlotImportHandler {
	return &SlotImportHandler{service: svc}
}

// Import godoc
// @Summary Import available slots from iCalendar
// @Description Accepts a text/calendar body or a multipart "file" field. Existing slots of the teacher are replaced.
// @Tags Teachers
// @Accept text/calendar
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/slots/import [post]
func (h *SlotImportHandler) Import(c *gin.Context) {
	teacherID, err := strconv.Atoi(c.Param("id"))
	if err != nil || teacherID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid teacher id"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCalendarSize)
	body := io.Reader(c.Request.Body)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("file")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "calendar file is required"))
			return
		}
		f, err := file.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "calendar file is unreadable"))
			return
		}
		defer f.Close()
		body = f
	}

	resp, err := h.service.Import(c.Request.Context(), teacherID, body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}
