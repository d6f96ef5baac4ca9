package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-booking-api/internal/dto"
	"github.com/noah-isme/lesson-booking-api/internal/middleware"
	"github.com/noah-isme/lesson-booking-api/internal/service"
	appErrors "github.com/noah-isme/lesson-booking-api/pkg/errors"
	"github.com/noah-isme/lesson-booking-api/pkg/response"
)

type availabilityQuerier interface {
	ComputeFreeCells(ctx context.Context, req dto.FreeCellsRequest) (*dto.FreeCellsResponse, error)
	ResolveQualifyingTeachers(ctx context.Context, req dto.QualifyingTeachersRequest) (*dto.QualifyingTeachersResponse, error)
}

type availabilityExporter interface {
	Export(ctx context.Context, req dto.ExportRequest) (*service.ExportResult, error)
}

// AvailabilityHandler serves the free-cell grid and its exports.
type AvailabilityHandler struct {
	service  availabilityQuerier
	exporter availabilityExporter
	horizon  time.Duration
	now      func() time.Time
}

// NewAvailabilityHandler constructs the handler. horizonWeeks sizes the
// default window when a query omits start and end.
func NewAvailabilityHandler(svc *service.AvailabilityService, exporter *service.ExportService, horizonWeeks int) *AvailabilityHandler {
	if horizonWeeks <= 0 {
		horizonWeeks = 2
	}
	return &AvailabilityHandler{
		service:  svc,
		exporter: exporter,
		horizon:  time.Duration(horizonWeeks) * 7 * 24 * time.Hour,
		now:      time.Now,
	}
}

// Cells godoc
// @Summary List free weekday/hour cells
// @Description Students see cells filtered by their assigned teacher and languages. Anonymous callers see the public grid.
// @Tags Availability
// @Produce json
// @Param start query string false "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param end query string false "Window end (RFC 3339 or YYYY-MM-DD)"
// @Param recurring query bool false "Weekly mode"
// @Param selected query string false "Comma separated time codes already picked"
// @Param cells query string false "Comma separated weekday-hour pairs already picked, e.g. 1-9,2-10"
// @Param assignedTeacherId query int false "Restrict to one teacher"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /availability/cells [get]
func (h *AvailabilityHandler) Cells(c *gin.Context) {
	start, end, err := h.window(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	selected, err := parseCodes(c.Query("selected"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error()))
		return
	}
	cells, err := parseCells(c.Query("cells"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error()))
		return
	}
	assigned, err := parseOptionalID(c.Query("assignedTeacherId"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error()))
		return
	}

	req := dto.FreeCellsRequest{
		Start:             start,
		End:               end,
		Recurring:         queryBool(c, "recurring"),
		Selected:          selected,
		Cells:             cells,
		AssignedTeacherID: assigned,
	}
	if claims := middleware.Claims(c); claims.IsStudent() {
		studentID := claims.UserID
		req.StudentID = &studentID
		req.AssignedTeacherID = nil
	}

	resp, err := h.service.ComputeFreeCells(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, map[string]interface{}{
		"start": start.Format(time.RFC3339),
		"end":   end.Format(time.RFC3339),
	})
}

// QualifyingTeachers godoc
// @Summary Resolve teachers covering every selected instant and cell
// @Description Cells are placed at their first occurrence inside the start/end window, which defaults to the booking horizon.
// @Tags Availability
// @Accept json
// @Produce json
// @Param start query string false "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param end query string false "Window end (RFC 3339 or YYYY-MM-DD)"
// @Param cells query string false "Weekday-hour pairs, used when the body has none"
// @Param payload body dto.QualifyingTeachersRequest true "Selection"
// @Success 200 {object} response.Envelope
// @Router /availability/qualifying-teachers [post]
func (h *AvailabilityHandler) QualifyingTeachers(c *gin.Context) {
	var req dto.QualifyingTeachersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid selection payload"))
		return
	}
	if len(req.Cells) == 0 {
		cells, err := parseCells(c.Query("cells"))
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error()))
			return
		}
		req.Cells = cells
	}
	if len(req.Cells) > 0 {
		start, end, err := h.window(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		req.Start, req.End = start, end
	}
	resp, err := h.service.ResolveQualifyingTeachers(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Export godoc
// @Summary Download the free-cell grid
// @Tags Availability
// @Produce octet-stream
// @Param start query string false "Window start"
// @Param end query string false "Window end"
// @Param recurring query bool false "Weekly mode"
// @Param format query string true "csv, xlsx or pdf"
// @Success 200 {file} file
// @Router /availability/export [get]
func (h *AvailabilityHandler) Export(c *gin.Context) {
	start, end, err := h.window(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), dto.ExportRequest{
		Start:     start,
		End:       end,
		Recurring: queryBool(c, "recurring"),
		Format:    c.DefaultQuery("format", "csv"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, result.Filename, result.ContentType, result.Body)
}

func (h *AvailabilityHandler) window(c *gin.Context) (time.Time, time.Time, error) {
	now := h.now().UTC()
	start, end := now, now.Add(h.horizon)

	if raw := c.Query("start"); raw != "" {
		t, err := parseInstant(raw, false)
		if err != nil {
			return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidWindow.Code, appErrors.ErrInvalidWindow.Status, err.Error())
		}
		start = t
		if c.Query("end") == "" {
			end = start.Add(h.horizon)
		}
	}
	if raw := c.Query("end"); raw != "" {
		t, err := parseInstant(raw, true)
		if err != nil {
			return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidWindow.Code, appErrors.ErrInvalidWindow.Status, err.Error())
		}
		end = t
	}
	return start, end, nil
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}
