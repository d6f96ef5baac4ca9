package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-booking-api/internal/dto"
)

type importerMock struct {
	teacherID int
	body      string
}

func (m *importerMock) Import(ctx context.Context, teacherID int, r io.Reader) (*dto.SlotImportResponse, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.teacherID = teacherID
	m.body = string(raw)
	return &dto.SlotImportResponse{TeacherID: teacherID}, nil
}

func newImportRouter(mock *importerMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &SlotImportHandler{service: mock}
	router := gin.New()
	router.POST("/teachers/:id/slots/import", h.Import)
	return router
}

func TestSlotImportRawBody(t *testing.T) {
	mock := &importerMock{}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/teachers/101/slots/import", bytes.NewBufferString("BEGIN:VCALENDAR"))
	req.Header.Set("Content-Type", "text/calendar")
	newImportRouter(mock).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 101, mock.teacherID)
	assert.Equal(t, "BEGIN:VCALENDAR", mock.body)
}

func TestSlotImportMultipart(t *testing.T) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "slots.ics")
	require.NoError(t, err)
	_, err = part.Write([]byte("BEGIN:VCALENDAR"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	mock := &importerMock{}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/teachers/101/slots/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	newImportRouter(mock).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "BEGIN:VCALENDAR", mock.body)
}

func TestSlotImportRejectsBadTeacherID(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/teachers/abc/slots/import", bytes.NewBufferString(""))
	newImportRouter(&importerMock{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
