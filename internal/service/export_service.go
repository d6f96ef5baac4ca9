package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-booking-api/internal/dto"
	appErrors "github.com/noah-isme/lesson-booking-api/pkg/errors"
	"github.com/noah-isme/lesson-booking-api/pkg/export"
)

// Renderer turns a dataset into a downloadable file.
type Renderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

type freeCellsComputer interface {
	ComputeFreeCells(ctx context.Context, req dto.FreeCellsRequest) (*dto.FreeCellsResponse, error)
}

// ExportResult is a rendered availability sheet.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders the free-cell grid as CSV, XLSX or PDF.
type ExportService struct {
	availability freeCellsComputer
	renderers    map[string]Renderer
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewExportService constructs an ExportService with the default renderers.
func NewExportService(availability freeCellsComputer, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		availability: availability,
		renderers: map[string]Renderer{
			"csv":  export.NewCSVExporter(),
			"xlsx": export.NewXLSXExporter(),
			"pdf":  export.NewPDFExporter(),
		},
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

var exportHeaders = []string{"Weekday", "Hour (UTC)", "Teachers", "Teacher IDs"}

// Export computes the browse grid for the window and renders it.
func (s *ExportService) Export(ctx context.Context, req dto.ExportRequest) (*ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}
	renderer, ok := s.renderers[req.Format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", req.Format))
	}

	grid, err := s.availability.ComputeFreeCells(ctx, dto.FreeCellsRequest{
		Start:     req.Start,
		End:       req.End,
		Recurring: req.Recurring,
	})
	if err != nil {
		return nil, err
	}

	body, err := renderer.Render(buildDataset(req, grid))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("availability_%s_%s_%s.%s",
		req.Start.UTC().Format("20060102"),
		req.End.UTC().Format("20060102"),
		s.now().UTC().Format("150405"),
		renderer.Extension(),
	)
	s.logger.Debug("availability exported", zap.String("format", req.Format), zap.Int("cells", len(grid.Cells)), zap.Int("bytes", len(body)))
	return &ExportResult{Filename: filename, ContentType: renderer.ContentType(), Body: body}, nil
}

func buildDataset(req dto.ExportRequest, grid *dto.FreeCellsResponse) export.Dataset {
	mode := "one-off"
	if req.Recurring {
		mode = "weekly"
	}
	data := export.Dataset{
		Title:   fmt.Sprintf("Free lesson slots %s to %s (%s)", req.Start.UTC().Format("2006-01-02"), req.End.UTC().Format("2006-01-02"), mode),
		Headers: exportHeaders,
	}
	for _, cell := range grid.Cells {
		ids := make([]string, len(cell.TeacherIDs))
		for i, id := range cell.TeacherIDs {
			ids[i] = strconv.Itoa(id)
		}
		data.Rows = append(data.Rows, map[string]string{
			"Weekday":     time.Weekday(cell.Weekday).String(),
			"Hour (UTC)":  fmt.Sprintf("%02d:00", cell.Hour),
			"Teachers":    strconv.Itoa(len(cell.TeacherIDs)),
			"Teacher IDs": strings.Join(ids, " "),
		})
	}
	return data
}
