package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vigilbox/vigil-backend/internal/model"
	"github.com/vigilbox/vigil-backend/internal/response"
	"github.com/vigilbox/vigil-backend/internal/service"
	"github.com/vigilbox/vigil-backend/internal/source"
	"github.com/vigilbox/vigil-backend/internal/validator"
)

// CatalogHandler serves the selection screen: published exams, the topic
// pool, generated practice sets and offline bundles.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListExams godoc
// GET /api/v1/exams
// Lists published exams for the selection screen.
func (h *CatalogHandler) ListExams(c *gin.Context) {
	exams, err := h.catalog.ListExams(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if exams == nil {
		exams = []model.ExamSummary{}
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// ListTopics godoc
// GET /api/v1/topics
// Lists the distinct topics across published exams, for building custom sets.
func (h *CatalogHandler) ListTopics(c *gin.Context) {
	topics, err := h.catalog.ListTopics(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if topics == nil {
		topics = []string{}
	}

	response.Success(c, http.StatusOK, gin.H{"topics": topics})
}

// CreateCustomSet godoc
// POST /api/v1/custom-sets
// Samples the published pool by topic into a one-off practice set.
func (h *CatalogHandler) CreateCustomSet(c *gin.Context) {
	var req model.CreateCustomSetRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	created, err := h.catalog.CreateCustomSet(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrNoQuestions) {
			response.Fail(c, http.StatusBadRequest, response.ErrNoQuestions)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"custom_set": created})
}

// SaveBundle godoc
// POST /api/v1/bundles
// Persists a paper as an offline SQLite bundle on disk.
func (h *CatalogHandler) SaveBundle(c *gin.Context) {
	var req model.SaveBundleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	info, err := h.catalog.SaveBundle(req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateQuestionID):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"questions": "duplicate question id",
			})
		case errors.Is(err, source.ErrSourceInvalid):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"name": "bundle name must be a plain file stem",
			})
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"bundle": info})
}

// ListBundles godoc
// GET /api/v1/bundles
// Lists the offline bundles stored on this server.
func (h *CatalogHandler) ListBundles(c *gin.Context) {
	bundles, err := h.catalog.ListBundles()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if bundles == nil {
		bundles = []model.BundleInfo{}
	}

	response.Success(c, http.StatusOK, gin.H{"bundles": bundles})
}
