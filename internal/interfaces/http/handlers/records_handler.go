package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// RecordStore is the query surface the records endpoints need from the
// repository layer.
type RecordStore interface {
	Get(ctx context.Context, problemID, model string, attempt int) (*record.Record, error)
	ListByProblem(ctx context.Context, problemID string) ([]*record.Record, error)
	SearchByKeyword(ctx context.Context, keyword string, limit int) ([]*record.Record, error)
	StatsByModel(ctx context.Context) ([]repositories.ModelStat, error)
	DeleteByProblem(ctx context.Context, problemID string) (int64, error)
}

// RecordsHandler serves queries over persisted extraction results.
type RecordsHandler struct {
	store RecordStore
}

// NewRecordsHandler builds a RecordsHandler.
func NewRecordsHandler(store RecordStore) *RecordsHandler {
	return &RecordsHandler{store: store}
}

// ListByProblem handles GET /api/v1/records/:problem_id.
func (h *RecordsHandler) ListByProblem(c *gin.Context) {
	recs, err := h.store.ListByProblem(c.Request.Context(), c.Param("problem_id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs, "count": len(recs)})
}

// Get handles GET /api/v1/records/:problem_id/:model/:attempt.
func (h *RecordsHandler) Get(c *gin.Context) {
	attempt, err := strconv.Atoi(c.Param("attempt"))
	if err != nil || attempt < 0 {
		writeAppError(c, errors.New(errors.ErrCodeBadRequest, "attempt must be a non-negative integer"))
		return
	}

	rec, err := h.store.Get(c.Request.Context(), c.Param("problem_id"), c.Param("model"), attempt)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Search handles GET /api/v1/records/search?keyword=...&limit=...
func (h *RecordsHandler) Search(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		writeAppError(c, errors.New(errors.ErrCodeBadRequest, "keyword query parameter is required"))
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeAppError(c, errors.New(errors.ErrCodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	recs, err := h.store.SearchByKeyword(c.Request.Context(), keyword, limit)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs, "count": len(recs)})
}

// Stats handles GET /api/v1/records/stats/models.
func (h *RecordsHandler) Stats(c *gin.Context) {
	stats, err := h.store.StatsByModel(c.Request.Context())
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": stats})
}

// DeleteByProblem handles DELETE /api/v1/records/:problem_id.
func (h *RecordsHandler) DeleteByProblem(c *gin.Context) {
	deleted, err := h.store.DeleteByProblem(c.Request.Context(), c.Param("problem_id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
