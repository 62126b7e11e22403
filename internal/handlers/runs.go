package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"waterflow/internal/repository"
)

// RunSummaryDTO краткая запись истории
type RunSummaryDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Algorithm  string    `json:"algorithm"`
	FlowValue  float64   `json:"flow_value"`
	Reason     string    `json:"reason"`
	Iterations int       `json:"iterations"`
	DurationMs float64   `json:"duration_ms"`
	NodeCount  int       `json:"node_count"`
	EdgeCount  int       `json:"edge_count"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
}

// RunDTO полная запись истории
type RunDTO struct {
	RunSummaryDTO
	Request  json.RawMessage `json:"request,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

// ListRunsResponse страница истории
type ListRunsResponse struct {
	Runs   []RunSummaryDTO `json:"runs"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// ListRuns возвращает историю расчётов текущего пользователя.
// Параметр q переключает в полнотекстовый поиск по имени.
func (h *Handler) ListRuns(c *gin.Context) {
	runs := h.svc.Runs()
	if runs == nil {
		h.historyDisabled(c)
		return
	}

	userID := c.GetString(ctxUserID)

	if query := c.Query("q"); query != "" {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		found, err := runs.Search(c.Request.Context(), userID, query, limit)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, ListRunsResponse{
			Runs:  fromSummaries(found),
			Total: int64(len(found)),
			Limit: limit,
		})
		return
	}

	opts := &repository.ListOptions{
		Sort: repository.SortOrder(c.DefaultQuery("sort", string(repository.SortByCreatedDesc))),
	}
	opts.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	opts.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := &repository.ListFilter{
		Algorithm: c.Query("algorithm"),
		Reason:    c.Query("reason"),
	}
	if tags := c.QueryArray("tag"); len(tags) > 0 {
		filter.Tags = tags
	}
	opts.Filter = filter

	summaries, total, err := runs.List(c.Request.Context(), userID, opts)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ListRunsResponse{
		Runs:   fromSummaries(summaries),
		Total:  total,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// GetRun возвращает один расчёт с полными данными запроса и ответа
func (h *Handler) GetRun(c *gin.Context) {
	runs := h.svc.Runs()
	if runs == nil {
		h.historyDisabled(c)
		return
	}

	run, err := runs.GetByUserAndID(c.Request.Context(), c.GetString(ctxUserID), c.Param("id"))
	if err != nil {
		h.runError(c, err)
		return
	}

	c.JSON(http.StatusOK, RunDTO{
		RunSummaryDTO: fromRun(run),
		Request:       run.RequestData,
		Response:      run.ResponseData,
	})
}

// DeleteRun удаляет расчёт текущего пользователя
func (h *Handler) DeleteRun(c *gin.Context) {
	runs := h.svc.Runs()
	if runs == nil {
		h.historyDisabled(c)
		return
	}

	err := runs.DeleteByUserAndID(c.Request.Context(), c.GetString(ctxUserID), c.Param("id"))
	if err != nil {
		h.runError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// RunStatistics возвращает агрегированную статистику расчётов
func (h *Handler) RunStatistics(c *gin.Context) {
	runs := h.svc.Runs()
	if runs == nil {
		h.historyDisabled(c)
		return
	}

	var startTime, endTime *time.Time
	if s := c.Query("start"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			startTime = &t
		}
	}
	if s := c.Query("end"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			endTime = &t
		}
	}

	stats, err := runs.GetStatistics(c.Request.Context(), c.GetString(ctxUserID), startTime, endTime)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) historyDisabled(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, ErrorResponse{
		Error: "run history is disabled",
	})
}

func (h *Handler) runError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrRunNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "run not found"})
	case errors.Is(err, repository.ErrAccessDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})
	default:
		h.fail(c, err)
	}
}

func fromRun(run *repository.Run) RunSummaryDTO {
	return RunSummaryDTO{
		ID:         run.ID,
		Name:       run.Name,
		Algorithm:  run.Algorithm,
		FlowValue:  run.FlowValue,
		Reason:     run.Reason,
		Iterations: run.Iterations,
		DurationMs: run.DurationMs,
		NodeCount:  run.NodeCount,
		EdgeCount:  run.EdgeCount,
		Tags:       run.Tags,
		CreatedAt:  run.CreatedAt,
	}
}

func fromSummaries(summaries []*repository.RunSummary) []RunSummaryDTO {
	out := make([]RunSummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, RunSummaryDTO{
			ID:         s.ID,
			Name:       s.Name,
			Algorithm:  s.Algorithm,
			FlowValue:  s.FlowValue,
			Reason:     s.Reason,
			Iterations: s.Iterations,
			DurationMs: s.DurationMs,
			NodeCount:  s.NodeCount,
			EdgeCount:  s.EdgeCount,
			Tags:       s.Tags,
			CreatedAt:  s.CreatedAt,
		})
	}
	return out
}
