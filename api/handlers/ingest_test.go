package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyflow/course-processor/api/middleware"
	"github.com/studyflow/course-processor/pkg/logger"
)

func ingestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	// The rejection paths under test never reach the pipeline.
	h := NewIngestHandler(nil, 1024, logger.NewTestLogger())

	r := gin.New()
	r.Use(middleware.Identity())
	r.POST("/documents/ingest", h.ProcessUpload)
	return r
}

func multipartUpload(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", "lecture01.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.7 content"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestProcessUpload_RequiresIdentity(t *testing.T) {
	r := ingestRouter()
	body, contentType := multipartUpload(t, map[string]string{"docType": "lecture"})

	req := httptest.NewRequest(http.MethodPost, "/documents/ingest", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp["code"])
}

func TestProcessUpload_RejectsUnknownDocType(t *testing.T) {
	r := ingestRouter()
	body, contentType := multipartUpload(t, map[string]string{"docType": "novel"})

	req := httptest.NewRequest(http.MethodPost, "/documents/ingest", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "docType")
}

func TestProcessUpload_RequiresFilePart(t *testing.T) {
	r := ingestRouter()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("docType", "lecture"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents/ingest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file")
}
