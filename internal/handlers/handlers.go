// Package handlers реализует HTTP границу движка: JSON API для расчёта
// потока, минимального разреза, сценариев и отчётов.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"waterflow/gen/openapi"
	"waterflow/internal/engine"
	"waterflow/internal/report"
	"waterflow/internal/service"
	"waterflow/internal/sweep"
	"waterflow/internal/waternet"
	"waterflow/pkg/apperror"
	"waterflow/pkg/audit"
	"waterflow/pkg/config"
	"waterflow/pkg/metrics"
	"waterflow/pkg/passhash"
	"waterflow/pkg/ratelimit"
	"waterflow/pkg/swagger"
	"waterflow/pkg/telemetry"
)

// Handler обслуживает HTTP API
type Handler struct {
	svc       *service.FlowService
	cfg       *config.Config
	startedAt time.Time
}

// NewHandler создаёт handler
func NewHandler(svc *service.FlowService, cfg *config.Config) *Handler {
	return &Handler{
		svc:       svc,
		cfg:       cfg,
		startedAt: time.Now(),
	}
}

// RouterOptions внешние зависимости роутера
type RouterOptions struct {
	JWTManager *passhash.JWTManager
	Limiter    ratelimit.Limiter
}

// SetupRouter собирает gin роутер со всеми middleware и маршрутами
func (h *Handler) SetupRouter(opts RouterOptions) *gin.Engine {
	if !h.cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())
	if h.cfg.HTTP.CORS.Enabled {
		r.Use(CORSMiddleware(h.cfg.HTTP.CORS))
	}
	if h.cfg.Tracing.Enabled {
		r.Use(telemetry.GinMiddleware())
	}
	if h.cfg.Audit.Enabled {
		r.Use(AuditMiddleware(audit.FromConfig(&h.cfg.Audit), h.cfg.App.Name))
	}

	// Публичные маршруты
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	if h.cfg.Metrics.Enabled {
		path := h.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(metrics.Handler()))
	}
	if h.cfg.Swagger.Enabled {
		swaggerCfg := swagger.DefaultConfig()
		if h.cfg.Swagger.Title != "" {
			swaggerCfg.Title = h.cfg.Swagger.Title
		}
		ui := swagger.NewHandler(swaggerCfg, openapi.MustGetSpec())
		r.GET("/swagger/*any", gin.WrapH(ui))
	}

	api := r.Group("/api/v1")
	if opts.Limiter != nil && h.cfg.RateLimit.Enabled {
		api.Use(RateLimitMiddleware(opts.Limiter))
	}
	if opts.JWTManager != nil && h.cfg.Auth.Enabled {
		api.Use(AuthMiddleware(opts.JWTManager))
	}

	api.GET("/algorithms", h.Algorithms)
	api.POST("/solve", h.Solve)
	api.POST("/mincut", h.MinCut)
	api.POST("/scenario/apply", h.ApplyScenario)
	api.POST("/paths", h.FlowPaths)
	api.POST("/sweep/leakage", h.LeakageSweep)
	api.POST("/sweep/failures", h.FailureAnalysis)
	api.POST("/report", h.Report)

	runs := api.Group("/runs")
	runs.GET("", h.ListRuns)
	runs.GET("/:id", h.GetRun)
	runs.DELETE("/:id", h.DeleteRun)
	runs.GET("/stats", h.RunStatistics)

	return r
}

// ==================== Служебные ====================

// Health сообщает статус сервиса
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "HEALTHY",
		Version:   h.svc.Version(),
		UptimeSec: time.Since(h.startedAt).Seconds(),
	})
}

// Ready сообщает готовность зависимостей
func (h *Handler) Ready(c *gin.Context) {
	checks := map[string]bool{
		"engine": true,
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "READY",
		Version:   h.svc.Version(),
		UptimeSec: time.Since(h.startedAt).Seconds(),
		Checks:    checks,
	})
}

// Algorithms возвращает каталог алгоритмов
func (h *Handler) Algorithms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"algorithms": engine.Catalogue(),
		"default":    h.defaultAlgorithm(),
	})
}

// ==================== Расчёты ====================

// Solve считает максимальный поток
func (h *Handler) Solve(c *gin.Context) {
	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	network, variant, opts, rec, ok := h.prepare(c, &req.Network, req.Scenario, req.Algorithm, req.Options)
	if !ok {
		return
	}

	result, err := h.svc.Solve(c.Request.Context(), network, variant, opts)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := fromResult(network, result)
	if rec != nil {
		resp.Trace = rec.Events()
	}

	if req.Save {
		run, err := h.svc.SaveRun(c.Request.Context(), c.GetString(ctxUserID),
			req.Name, network, result, &req, resp, req.Tags)
		if err == nil && run != nil {
			resp.RunID = run.ID
		}
	}

	c.JSON(http.StatusOK, resp)
}

// MinCut считает поток и минимальный разрез
func (h *Handler) MinCut(c *gin.Context) {
	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	network, variant, opts, _, ok := h.prepare(c, &req.Network, req.Scenario, req.Algorithm, req.Options)
	if !ok {
		return
	}

	result, cut, err := h.svc.MinCut(c.Request.Context(), network, variant, opts)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := fromMinCut(cut)
	resp.Result = fromResult(network, result)
	c.JSON(http.StatusOK, resp)
}

// ApplyScenario применяет сценарий и возвращает возмущённую сеть
func (h *Handler) ApplyScenario(c *gin.Context) {
	var req struct {
		Network  NetworkDTO  `json:"network" binding:"required"`
		Scenario ScenarioDTO `json:"scenario" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	network, err := req.Network.ToNetwork()
	if err != nil {
		h.fail(c, err)
		return
	}

	perturbed, err := waternet.ApplyScenario(network, req.Scenario.ToScenario())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ScenarioResponse{Network: fromNetwork(perturbed)})
}

// FlowPaths раскладывает поток на пути источник-сток
func (h *Handler) FlowPaths(c *gin.Context) {
	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	network, variant, opts, _, ok := h.prepare(c, &req.Network, req.Scenario, req.Algorithm, req.Options)
	if !ok {
		return
	}

	result, paths, err := h.svc.FlowPaths(c.Request.Context(), network, variant, opts)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, FlowPathsResponse{
		Result: fromResult(network, result),
		Paths:  fromPaths(paths),
	})
}

// ==================== Сценарные прогоны ====================

// LeakageSweep выполняет развёртку по уровню утечки
func (h *Handler) LeakageSweep(c *gin.Context) {
	var req SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	network, variant, opts, _, ok := h.prepare(c, &req.Network, nil, req.Algorithm, req.Options)
	if !ok {
		return
	}

	rep, err := h.svc.LeakageSweep(c.Request.Context(), network, variant,
		req.toSweepConfig(h.sweepConfig()), opts)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, rep)
}

// FailureAnalysis выполняет N-1 анализ отказов
func (h *Handler) FailureAnalysis(c *gin.Context) {
	var req SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	network, variant, opts, _, ok := h.prepare(c, &req.Network, nil, req.Algorithm, req.Options)
	if !ok {
		return
	}

	rep, err := h.svc.FailureAnalysis(c.Request.Context(), network, variant,
		h.sweepConfig(), opts)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, rep)
}

// ==================== Отчёты ====================

// Report считает поток, разрез и сценарные анализы и отдаёт файл отчёта
func (h *Handler) Report(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	format := report.Format(req.Format)
	if req.Format == "" {
		format = report.FormatJSON
	}

	network, variant, opts, _, ok := h.prepare(c, &req.Network, req.Scenario, req.Algorithm, nil)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	result, cut, err := h.svc.MinCut(ctx, network, variant, opts)
	if err != nil {
		h.fail(c, err)
		return
	}

	data := &report.ReportData{
		Options: &report.Options{
			Title:          req.Title,
			IncludeRawData: req.IncludeRawData,
		},
		Network: network,
		Result:  result,
		Cut:     cut,
		Stats:   h.svc.Statistics(network, result),
	}

	if req.IncludeSweeps {
		if leakage, err := h.svc.LeakageSweep(ctx, network, variant, h.sweepConfig(), opts); err == nil {
			data.Leakage = leakage
		}
		if failure, err := h.svc.FailureAnalysis(ctx, network, variant, h.sweepConfig(), opts); err == nil {
			data.Failure = failure
		}
	}

	out, err := h.svc.GenerateReport(ctx, format, data)
	if err != nil {
		h.fail(c, err)
		return
	}

	filename := fmt.Sprintf("waterflow-report-%s.%s",
		time.Now().Format("20060102-150405"), format.Extension())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), out)
}

// ==================== Вспомогательные ====================

// prepare валидирует сеть, сценарий, алгоритм и настройки запроса.
// При ошибке пишет ответ и возвращает ok=false.
func (h *Handler) prepare(c *gin.Context, networkDTO *NetworkDTO, scenarioDTO *ScenarioDTO, algorithm string, optionsDTO *OptionsDTO) (*waternet.Network, waternet.Variant, *engine.Options, *engine.MemoryRecorder, bool) {
	network, err := networkDTO.ToNetwork()
	if err != nil {
		h.fail(c, err)
		return nil, "", nil, nil, false
	}

	if scenarioDTO != nil {
		network, err = waternet.ApplyScenario(network, scenarioDTO.ToScenario())
		if err != nil {
			h.fail(c, err)
			return nil, "", nil, nil, false
		}
	}

	if algorithm == "" {
		algorithm = h.defaultAlgorithm()
	}
	variant, err := waternet.ParseVariant(algorithm)
	if err != nil {
		h.fail(c, err)
		return nil, "", nil, nil, false
	}

	opts, rec := optionsDTO.toEngineOptions(h.cfg.Engine.TraceLimit)
	if optionsDTO == nil || optionsDTO.MaxIterations <= 0 {
		if h.cfg.Engine.MaxIterations > 0 {
			opts.WithMaxIterations(h.cfg.Engine.MaxIterations)
		}
	}
	if optionsDTO == nil || optionsDTO.TimeoutMs <= 0 {
		if h.cfg.Engine.SolveTimeout > 0 {
			opts.WithTimeout(h.cfg.Engine.SolveTimeout)
		}
	}

	return network, variant, opts, rec, true
}

func (h *Handler) defaultAlgorithm() string {
	if h.cfg.Engine.DefaultAlgorithm != "" {
		return h.cfg.Engine.DefaultAlgorithm
	}
	return string(waternet.BlockingFlow)
}

func (h *Handler) sweepConfig() sweep.Config {
	cfg := sweep.DefaultConfig()
	if h.cfg.Sweep.Concurrency > 0 {
		cfg.Concurrency = h.cfg.Sweep.Concurrency
	}
	if h.cfg.Sweep.LeakageStep > 0 {
		cfg.Step = h.cfg.Sweep.LeakageStep
	}
	if h.cfg.Sweep.MaxLeakage > 0 {
		cfg.MaxLeakage = h.cfg.Sweep.MaxLeakage
	}
	if h.cfg.Sweep.RunTimeout > 0 {
		cfg.RunTimeout = h.cfg.Sweep.RunTimeout
	}
	return cfg
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

// fail пишет ошибку с HTTP статусом из её кода
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	resp := ErrorResponse{Error: err.Error()}
	if code := apperror.Code(err); code != "" {
		resp.Code = string(code)
	}
	c.JSON(status, resp)
}
