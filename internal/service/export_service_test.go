package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-booking-api/internal/dto"
	appErrors "github.com/noah-isme/lesson-booking-api/pkg/errors"
)

type freeCellsStub struct {
	resp *dto.FreeCellsResponse
	req  dto.FreeCellsRequest
}

func (s *freeCellsStub) ComputeFreeCells(ctx context.Context, req dto.FreeCellsRequest) (*dto.FreeCellsResponse, error) {
	s.req = req
	return s.resp, nil
}

func newExportServiceForTest() (*ExportService, *freeCellsStub) {
	stub := &freeCellsStub{resp: &dto.FreeCellsResponse{
		Cells: []dto.FreeCell{
			{Weekday: 1, Hour: 8, TeacherIDs: []int{101, 102}},
			{Weekday: 3, Hour: 15, TeacherIDs: []int{103}},
		},
	}}
	svc := NewExportService(stub, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC) }
	return svc, stub
}

func TestExportServiceCSV(t *testing.T) {
	svc, stub := newExportServiceForTest()

	result, err := svc.Export(context.Background(), dto.ExportRequest{
		Start:     monday,
		End:       monday.AddDate(0, 0, 6),
		Recurring: true,
		Format:    "csv",
	})
	require.NoError(t, err)

	assert.Equal(t, "availability_20240101_20240107_123000.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, stub.req.Recurring)
	assert.Nil(t, stub.req.StudentID)

	records, err := csv.NewReader(bytes.NewReader(result.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeaders, records[0])
	assert.Equal(t, []string{"Monday", "08:00", "2", "101 102"}, records[1])
	assert.Equal(t, []string{"Wednesday", "15:00", "1", "103"}, records[2])
}

func TestExportServiceBinaryFormats(t *testing.T) {
	svc, _ := newExportServiceForTest()

	for format, contentType := range map[string]string{
		"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"pdf":  "application/pdf",
	} {
		result, err := svc.Export(context.Background(), dto.ExportRequest{Start: monday, End: monday, Format: format})
		require.NoError(t, err, format)
		assert.Equal(t, contentType, result.ContentType)
		assert.NotEmpty(t, result.Body)
	}
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportServiceForTest()

	_, err := svc.Export(context.Background(), dto.ExportRequest{Start: monday, End: monday, Format: "docx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
