package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dkn/internal/apperror"
	"dkn/internal/auth"
	"dkn/internal/http/middleware"
	"dkn/internal/model"
	"dkn/internal/repository"
	"dkn/internal/service"
	serviceMocks "dkn/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testMaxUpload = 10 << 20

// newTestApp mimics the production stack with the caller already authenticated as userID.
func newTestApp(userID int64) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(testMaxUpload)})
	app.Use(middleware.RequestID())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.ClaimsLocalKey, &auth.Claims{UserID: userID})
		return c.Next()
	})
	return app
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var res errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func decodeMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var res map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func multipartBody(t *testing.T, fields map[string]string, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/api/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeMap(t, resp)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "DKN API is running", body["message"])
		assert.NotEmpty(t, body["timestamp"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Code)
	})

	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadDocument(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockDocumentService)
		app := newTestApp(7)
		app.Post("/documents/upload", UploadDocument(mockSvc, testMaxUpload))

		body, ct := multipartBody(t, map[string]string{
			"title":        "Water survey",
			"tags":         "water",
			"department":   "Health",
			"region":       "Coast",
			"project_type": "Research",
		}, "survey.pdf", "hello world")

		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.Reader != nil &&
				in.OriginalName == "survey.pdf" &&
				in.Size == 11 &&
				in.Title == "Water survey" &&
				in.Tags == "water" &&
				in.Department == "Health" &&
				in.Region == "Coast" &&
				in.ProjectType == "Research"
		}), int64(7)).Return(&model.Document{ID: 12, Title: "Water survey"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		res := decodeMap(t, resp)
		assert.Equal(t, true, res["success"])
		assert.Equal(t, "Document uploaded successfully", res["message"])
		doc := res["document"].(map[string]any)
		assert.Equal(t, float64(12), doc["id"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file is passed through for validation", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockDocumentService)
		app := newTestApp(7)
		app.Post("/documents/upload", UploadDocument(mockSvc, testMaxUpload))

		body, ct := multipartBody(t, map[string]string{"title": "No file"}, "", "")
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.Reader == nil
		}), int64(7)).Return(nil, apperror.Validation("Please upload a file")).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		res := decodeError(t, resp)
		assert.False(t, res.Success)
		assert.Equal(t, "VALIDATION_ERROR", res.Code)
		assert.Equal(t, "Please upload a file", res.Message)
		assert.NotEmpty(t, res.RequestID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("file too large", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockDocumentService)
		app := newTestApp(7)
		app.Post("/documents/upload", UploadDocument(mockSvc, 4))

		body, ct := multipartBody(t, map[string]string{"title": "Big"}, "big.bin", "hello world")
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		res := decodeError(t, resp)
		assert.Equal(t, "FILE_TOO_LARGE", res.Code)
		assert.True(t, strings.HasPrefix(res.Message, "File size too large. Maximum size is"))
		mockSvc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockDocumentService)
		app := newTestApp(7)
		app.Post("/documents/upload", UploadDocument(mockSvc, testMaxUpload))

		body, ct := multipartBody(t, map[string]string{"title": "T"}, "a.txt", "hello")
		mockSvc.On("Upload", mock.Anything, mock.Anything, int64(7)).
			Return(nil, apperror.Storage("Server error during upload", errors.New("disk full"))).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		res := decodeError(t, resp)
		assert.Equal(t, "INTERNAL_ERROR", res.Code)
		assert.Equal(t, "Server error during upload", res.Message)
	})
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp(3)
	app.Get("/documents", ListDocuments(mockSvc))

	t.Run("success with filters", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, int64(3),
			repository.DocumentFilter{
				Search:     "water",
				Department: "Eng",
				Region:     "US",
				Tags:       "gis",
				UploaderID: 9,
				Status:     model.StatusPending,
			},
			repository.PageQuery{Limit: 10, Offset: 20},
		).Return(&service.DocumentListResult{
			Documents:  []model.Document{{ID: 1}},
			Count:      1,
			IsReviewer: true,
		}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet,
			"/documents?search=water&department=Eng&region=US&tags=gis&uploader_id=9&status=pending&limit=10&offset=20", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		res := decodeMap(t, resp)
		assert.Equal(t, true, res["success"])
		assert.Equal(t, float64(1), res["count"])
		assert.Equal(t, true, res["is_reviewer"])
		assert.Len(t, res["documents"], 1)
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty result renders an empty list", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, int64(3), repository.DocumentFilter{}, repository.PageQuery{}).
			Return(&service.DocumentListResult{}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))
		require.NoError(t, err)
		res := decodeMap(t, resp)
		assert.Equal(t, []any{}, res["documents"])
	})

	t.Run("invalid limit", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?limit=abc", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, resp).Code)
	})

	t.Run("invalid offset", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?offset=-1", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_OFFSET", decodeError(t, resp).Code)
	})

	t.Run("invalid uploader", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?uploader_id=me", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_UPLOADER_ID", decodeError(t, resp).Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, int64(3), mock.Anything, mock.Anything).
			Return(nil, errors.New("service error")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?limit=5", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		res := decodeError(t, resp)
		assert.Equal(t, "Server error", res.Message)
		assert.NotContains(t, res.Message, "service error")
	})
}

func TestRecentAndPendingDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp(1)
	app.Get("/documents/recent", RecentDocuments(mockSvc))
	app.Get("/documents/pending", PendingDocuments(mockSvc))

	mockSvc.On("Recent", mock.Anything, 5).Return([]model.Document{{ID: 3}, {ID: 2}}, nil).Once()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/recent?limit=5", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeMap(t, resp)["documents"], 2)

	mockSvc.On("Pending", mock.Anything, int64(1)).Return([]model.Document{{ID: 4}}, nil).Once()
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/documents/pending", nil))
	require.NoError(t, err)
	res := decodeMap(t, resp)
	assert.Equal(t, float64(1), res["count"])

	mockSvc.On("Pending", mock.Anything, int64(1)).
		Return(nil, apperror.Authorization("Only Knowledge Champions can access pending documents")).Once()
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/documents/pending", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", decodeError(t, resp).Code)

	mockSvc.AssertExpectations(t)
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp(1)
	app.Get("/documents/:id", GetDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, int64(42)).
			Return(&model.Document{ID: 42, Title: "Report", FileURL: "/uploads/documents/x.pdf"}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/42", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		doc := decodeMap(t, resp)["document"].(map[string]any)
		assert.Equal(t, float64(42), doc["id"])
		assert.Equal(t, "/uploads/documents/x.pdf", doc["file_url"])
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, int64(43)).Return(nil, apperror.NotFound("Document not found")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/43", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		res := decodeError(t, resp)
		assert.Equal(t, "NOT_FOUND", res.Code)
		assert.Equal(t, "Document not found", res.Message)
	})

	t.Run("invalid id", func(t *testing.T) {
		for _, id := range []string{"abc", "0", "-3"} {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, id)
			assert.Equal(t, "INVALID_ID", decodeError(t, resp).Code)
		}
	})

	mockSvc.AssertExpectations(t)
}

func TestDownloadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp(9)
	app.Get("/documents/:id/download", DownloadDocument(mockSvc))

	t.Run("streams the file as an attachment", func(t *testing.T) {
		mockSvc.On("Download", mock.Anything, int64(5), int64(9)).Return(&service.DownloadResult{
			Body:        io.NopCloser(strings.NewReader("data")),
			FileName:    "report.pdf",
			ContentType: "application/pdf",
			Size:        4,
		}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/5/download", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), `attachment; filename="report.pdf"`)

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "data", string(body))
	})

	t.Run("missing file", func(t *testing.T) {
		mockSvc.On("Download", mock.Anything, int64(6), int64(9)).
			Return(nil, apperror.NotFound("File not found on server")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/6/download", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "File not found on server", decodeError(t, resp).Message)
	})

	mockSvc.AssertExpectations(t)
}

func TestReviewDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockReviewService)
	app := newTestApp(1)
	app.Put("/documents/:id/review", ReviewDocument(mockSvc))

	put := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPut, "/documents/10/review", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	t.Run("approve", func(t *testing.T) {
		mockSvc.On("Review", mock.Anything, int64(10), int64(1),
			service.ReviewInput{Status: "approved", Comment: "ok"}).Return(nil).Once()

		resp, err := app.Test(put(`{"status":"approved","comment":"ok"}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Document approved successfully", decodeMap(t, resp)["message"])
	})

	t.Run("invalid decision", func(t *testing.T) {
		mockSvc.On("Review", mock.Anything, int64(10), int64(1), service.ReviewInput{Status: "maybe"}).
			Return(apperror.Validation("Status must be either approved or rejected")).Once()

		resp, err := app.Test(put(`{"status":"maybe"}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, resp).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := app.Test(put(`{"status":`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Code)
	})

	mockSvc.AssertExpectations(t)
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp(7)
	app.Delete("/documents/:id", DeleteDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(5), int64(7)).Return(nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/5", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Document deleted successfully", decodeMap(t, resp)["message"])
	})

	t.Run("not the uploader", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(6), int64(7)).
			Return(apperror.Authorization("You can only delete your own documents")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/6", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "You can only delete your own documents", decodeError(t, resp).Message)
	})

	mockSvc.AssertExpectations(t)
}

func TestRouting(t *testing.T) {
	const secret = "routing-secret"
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(testMaxUpload)})
	app.Use(middleware.RequestID())

	docSvc := new(serviceMocks.MockDocumentService)
	dirSvc := new(serviceMocks.MockDirectoryService)
	RegisterRoutes(app, RouteConfig{
		Documents:      docSvc,
		Reviews:        new(serviceMocks.MockReviewService),
		Directory:      dirSvc,
		JWTSecret:      secret,
		MaxUploadBytes: testMaxUpload,
	})

	token, err := auth.GenerateToken(secret, 4, "", "", time.Hour)
	require.NoError(t, err)
	authed := func(method, target string) *http.Request {
		req := httptest.NewRequest(method, target, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	t.Run("not found route", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		res := decodeError(t, resp)
		assert.Equal(t, "NOT_FOUND", res.Code)
		assert.Equal(t, "Route not found", res.Message)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/healthz", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Code)
	})

	t.Run("api routes require a token", func(t *testing.T) {
		for _, target := range []string{"/api/documents", "/api/users/leaderboard"} {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, target)
		}
	})

	t.Run("recent is not captured by :id", func(t *testing.T) {
		docSvc.On("Recent", mock.Anything, 0).Return([]model.Document{}, nil).Once()

		resp, err := app.Test(authed(http.MethodGet, "/api/documents/recent"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("stats default to the caller", func(t *testing.T) {
		dirSvc.On("Stats", mock.Anything, int64(4)).Return(&model.UserStats{Rank: 1}, nil).Once()
		dirSvc.On("Stats", mock.Anything, int64(8)).Return(&model.UserStats{Rank: 3}, nil).Once()

		resp, err := app.Test(authed(http.MethodGet, "/api/users/stats"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err = app.Test(authed(http.MethodGet, "/api/users/stats/8"))
		require.NoError(t, err)
		stats := decodeMap(t, resp)["stats"].(map[string]any)
		assert.Equal(t, float64(3), stats["rank"])
	})

	docSvc.AssertExpectations(t)
	dirSvc.AssertExpectations(t)
}
