package applications

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"admithub/internal/contextutils"
	"admithub/internal/models"
	"admithub/internal/response"
	"admithub/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockApplicationService stubs the service layer per test case
type mockApplicationService struct {
	services.ApplicationService

	ensureFunc      func(ctx context.Context, userID int64) (*models.Application, error)
	saveSectionFunc func(ctx context.Context, req *services.SaveSectionRequest) (*services.SaveSectionResult, error)
	submitFunc      func(ctx context.Context, userID int64) (*models.Application, error)
	videoInfoFunc   func(ctx context.Context, userID int64) (*models.VideoInfo, error)
}

func (m *mockApplicationService) EnsureApplication(ctx context.Context, userID int64) (*models.Application, error) {
	return m.ensureFunc(ctx, userID)
}

func (m *mockApplicationService) SaveSection(ctx context.Context, req *services.SaveSectionRequest) (*services.SaveSectionResult, error) {
	return m.saveSectionFunc(ctx, req)
}

func (m *mockApplicationService) Submit(ctx context.Context, userID int64) (*models.Application, error) {
	return m.submitFunc(ctx, userID)
}

func (m *mockApplicationService) GetVideoInfo(ctx context.Context, userID int64) (*models.VideoInfo, error) {
	return m.videoInfoFunc(ctx, userID)
}

func newTestController(mock *mockApplicationService) *ApplicationsController {
	logger := zap.NewNop()
	sc := &services.ServiceCollection{
		ApplicationService: mock,
		Logger:             logger,
	}
	return NewApplicationsController(sc, logger, response.NewBuilder(response.DefaultConfig(), logger))
}

func testRouter(ctrl *ApplicationsController, userID int64) http.Handler {
	r := chi.NewRouter()
	if userID != 0 {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(contextutils.WithUserID(req.Context(), userID)))
			})
		})
	}
	r.Get("/me", ctrl.GetApplication)
	r.Patch("/me/sections/{section}", ctrl.SaveSection)
	r.Post("/me/submit", ctrl.Submit)
	r.Get("/me/video", ctrl.GetVideoInfo)
	return r
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response.APIResponse {
	t.Helper()
	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestGetApplicationHandler(t *testing.T) {
	t.Run("returns the caller's application", func(t *testing.T) {
		mock := &mockApplicationService{
			ensureFunc: func(ctx context.Context, userID int64) (*models.Application, error) {
				assert.Equal(t, int64(7), userID)
				return &models.Application{ID: 1, UserID: userID, Status: models.StatusDraft}, nil
			},
		}
		router := testRouter(newTestController(mock), 7)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeResponse(t, rec)
		assert.True(t, resp.Success)
	})

	t.Run("rejects unauthenticated requests", func(t *testing.T) {
		mock := &mockApplicationService{}
		router := testRouter(newTestController(mock), 0)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		resp := decodeResponse(t, rec)
		assert.False(t, resp.Success)
		assert.Equal(t, "UNAUTHORIZED", resp.Error.Type)
	})
}

func TestSaveSectionHandler(t *testing.T) {
	t.Run("forwards path section and user to the service", func(t *testing.T) {
		var captured *services.SaveSectionRequest
		mock := &mockApplicationService{
			saveSectionFunc: func(ctx context.Context, req *services.SaveSectionRequest) (*services.SaveSectionResult, error) {
				captured = req
				return &services.SaveSectionResult{
					Section:              models.SectionData(req.Data),
					CompletionPercentage: 8,
					Status:               models.StatusDraft,
				}, nil
			},
		}
		router := testRouter(newTestController(mock), 7)

		body := bytes.NewBufferString(`{"data":{"animalQuestion":"A jaguar because it waits patiently"}}`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/me/sections/warmUp", body))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, captured)
		assert.Equal(t, int64(7), captured.UserID)
		assert.Equal(t, "warmUp", captured.Section)
		assert.Contains(t, captured.Data, "animalQuestion")
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		mock := &mockApplicationService{}
		router := testRouter(newTestController(mock), 7)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/me/sections/warmUp", bytes.NewBufferString("{not json")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("propagates validation errors with fields", func(t *testing.T) {
		mock := &mockApplicationService{
			saveSectionFunc: func(ctx context.Context, req *services.SaveSectionRequest) (*services.SaveSectionResult, error) {
				return nil, services.NewDetailedValidationError("section payload is invalid", []services.FieldError{
					{Field: "warmUp.notAField", Message: "unknown field", Code: "INVALID_FIELD"},
				})
			},
		}
		router := testRouter(newTestController(mock), 7)

		body := bytes.NewBufferString(`{"data":{"notAField":"value"}}`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/me/sections/warmUp", body))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		require.Len(t, resp.Error.Fields, 1)
		assert.Equal(t, "warmUp.notAField", resp.Error.Fields[0].Field)
	})
}

func TestSubmitHandler(t *testing.T) {
	t.Run("incomplete application maps to 422 with progress", func(t *testing.T) {
		mock := &mockApplicationService{
			submitFunc: func(ctx context.Context, userID int64) (*models.Application, error) {
				return nil, services.NewNotCompleteError("application is not complete", 46, map[string]bool{
					"warmUp":      true,
					"commitment":  true,
					"purpose":     false,
					"exclusivity": false,
				})
			},
		}
		router := testRouter(newTestController(mock), 7)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/me/submit", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "NOT_COMPLETE", resp.Error.Type)
		assert.EqualValues(t, 46, resp.Error.Details["completionPercentage"])
	})

	t.Run("complete application reports the reviewed state", func(t *testing.T) {
		mock := &mockApplicationService{
			submitFunc: func(ctx context.Context, userID int64) (*models.Application, error) {
				return &models.Application{ID: 1, UserID: userID, Status: models.StatusInReview}, nil
			},
		}
		router := testRouter(newTestController(mock), 7)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/me/submit", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGetVideoInfoHandler(t *testing.T) {
	mock := &mockApplicationService{
		videoInfoFunc: func(ctx context.Context, userID int64) (*models.VideoInfo, error) {
			return &models.VideoInfo{HasVideo: true, HasURL: true}, nil
		},
	}
	router := testRouter(newTestController(mock), 7)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me/video", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["hasVideo"])
}