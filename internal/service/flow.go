// Package service оркестрирует расчёты потока: кэш, движок, метрики,
// трассировка и сохранение истории запусков.
package service

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"waterflow/internal/engine"
	"waterflow/internal/repository"
	"waterflow/internal/report"
	"waterflow/internal/sweep"
	"waterflow/internal/waternet"
	"waterflow/pkg/cache"
	"waterflow/pkg/logger"
	"waterflow/pkg/metrics"
	"waterflow/pkg/telemetry"
)

// FlowService выполняет расчёты максимального потока
type FlowService struct {
	version    string
	metrics    *metrics.Metrics
	solveCache *cache.SolveCache
	runs       repository.RunRepository
}

// NewFlowService создаёт сервис. solveCache и runs могут быть nil,
// тогда кэширование и история отключены.
func NewFlowService(version string, solveCache *cache.SolveCache, runs repository.RunRepository) *FlowService {
	return &FlowService{
		version:    version,
		metrics:    metrics.Get(),
		solveCache: solveCache,
		runs:       runs,
	}
}

// Solve считает максимальный поток, с кэшированием по каноническому
// хешу сети.
func (s *FlowService) Solve(ctx context.Context, network *waternet.Network, variant waternet.Variant, opts *engine.Options) (*waternet.FlowResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "FlowService.Solve",
		trace.WithAttributes(
			attribute.String("algorithm", string(variant)),
		),
	)
	defer span.End()

	telemetry.SetAttributes(ctx, telemetry.NetworkAttributes(
		network.NodeCount(), network.EdgeCount(), network.SourceID(), network.SinkID())...)

	// Проверяем кэш. Трассировка меняет поведение наблюдаемости,
	// поэтому трассируемые запуски идут мимо кэша.
	useCache := s.solveCache != nil && (opts == nil || opts.Trace == nil)
	if useCache {
		cached, found, err := s.solveCache.Get(ctx, network, variant, opts)
		if s.metrics != nil {
			s.metrics.RecordCacheHit("solve", err == nil && found)
		}
		if err == nil && found {
			telemetry.AddEvent(ctx, "cache_hit",
				attribute.Float64("max_flow", cached.Value),
			)
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return cached.ToFlowResult(), nil
		}
	}

	span.SetAttributes(attribute.Bool("cache_hit", false))

	result, err := engine.Run(ctx, network, variant, opts)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	// Сохраняем в кэш под ключом с учётом опций запуска
	if useCache {
		if err := s.solveCache.SetFromResult(ctx, network, result, opts, 0); err != nil {
			logger.Log.Warn("Failed to cache solve result", "error", err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordSolve(string(variant), string(result.Reason),
			result.Iterations, result.Duration, result.Value)
		s.metrics.RecordNetworkSize("solve", network.NodeCount(), network.EdgeCount())
	}

	telemetry.SetAttributes(ctx, telemetry.SolveAttributes(
		string(variant), result.Iterations, result.Value, string(result.Reason))...)

	return result, nil
}

// SolveScenario применяет сценарий к сети и считает поток на возмущённой
// сети. Результат не кэшируется по базовой сети: хеш берётся от
// возмущённой.
func (s *FlowService) SolveScenario(ctx context.Context, network *waternet.Network, scenario *waternet.Scenario, variant waternet.Variant, opts *engine.Options) (*waternet.FlowResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "FlowService.SolveScenario")
	defer span.End()

	perturbed, err := waternet.ApplyScenario(network, scenario)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	if scenario != nil {
		telemetry.SetAttributes(ctx, telemetry.ScenarioAttributes(
			scenario.DefaultLeakage, len(scenario.Failed))...)
	}

	return s.Solve(ctx, perturbed, variant, opts)
}

// MinCut считает поток и извлекает минимальный разрез
func (s *FlowService) MinCut(ctx context.Context, network *waternet.Network, variant waternet.Variant, opts *engine.Options) (*waternet.FlowResult, *waternet.MinCut, error) {
	ctx, span := telemetry.StartSpan(ctx, "FlowService.MinCut")
	defer span.End()

	result, err := s.Solve(ctx, network, variant, opts)
	if err != nil {
		return nil, nil, err
	}

	cut, err := engine.ExtractMinCut(network, result)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordMinCut(string(variant), len(cut.Edges))
	}
	telemetry.SetAttributes(ctx, telemetry.MinCutAttributes(len(cut.Edges), cut.Capacity)...)

	return result, cut, nil
}

// FlowPaths раскладывает найденный поток на пути источник-сток
func (s *FlowService) FlowPaths(ctx context.Context, network *waternet.Network, variant waternet.Variant, opts *engine.Options) (*waternet.FlowResult, []engine.FlowPath, error) {
	ctx, span := telemetry.StartSpan(ctx, "FlowService.FlowPaths")
	defer span.End()

	result, err := s.Solve(ctx, network, variant, opts)
	if err != nil {
		return nil, nil, err
	}

	paths, err := engine.DecomposePaths(network, result)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, nil, err
	}

	return result, paths, nil
}

// LeakageSweep прогоняет равномерную утечку по сетке уровней
func (s *FlowService) LeakageSweep(ctx context.Context, network *waternet.Network, variant waternet.Variant, cfg sweep.Config, opts *engine.Options) (*sweep.LeakageReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "FlowService.LeakageSweep")
	defer span.End()

	rep, err := sweep.Leakage(ctx, network, variant, cfg, opts)
	if s.metrics != nil {
		s.metrics.RecordSweepRun("leakage", err == nil)
	}
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	return rep, nil
}

// FailureAnalysis выполняет N-1 анализ отказов труб
func (s *FlowService) FailureAnalysis(ctx context.Context, network *waternet.Network, variant waternet.Variant, cfg sweep.Config, opts *engine.Options) (*sweep.FailureReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "FlowService.FailureAnalysis")
	defer span.End()

	rep, err := sweep.Failures(ctx, network, variant, cfg, opts)
	if s.metrics != nil {
		s.metrics.RecordSweepRun("failure", err == nil)
	}
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	return rep, nil
}

// Statistics считает диагностику по готовому результату
func (s *FlowService) Statistics(network *waternet.Network, result *waternet.FlowResult) *waternet.Statistics {
	return waternet.ComputeStatistics(network, result)
}

// GenerateReport собирает отчёт в заданном формате
func (s *FlowService) GenerateReport(ctx context.Context, format report.Format, data *report.ReportData) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "FlowService.GenerateReport",
		trace.WithAttributes(attribute.String("format", string(format))),
	)
	defer span.End()

	gen, err := report.New(format)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	out, err := gen.Generate(ctx, data)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	return out, nil
}

// SaveRun сохраняет запуск в историю. Отсутствие репозитория не ошибка:
// история опциональна, solve не должен падать из-за неё.
func (s *FlowService) SaveRun(ctx context.Context, userID, name string, network *waternet.Network, result *waternet.FlowResult, requestData, responseData any, tags []string) (*repository.Run, error) {
	if s.runs == nil {
		return nil, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "FlowService.SaveRun")
	defer span.End()

	reqJSON, err := json.Marshal(requestData)
	if err != nil {
		return nil, err
	}
	respJSON, err := json.Marshal(responseData)
	if err != nil {
		return nil, err
	}

	run := &repository.Run{
		UserID:       userID,
		Name:         name,
		Algorithm:    string(result.Algorithm),
		FlowValue:    result.Value,
		Reason:       string(result.Reason),
		Iterations:   result.Iterations,
		DurationMs:   float64(result.Duration) / float64(time.Millisecond),
		NodeCount:    network.NodeCount(),
		EdgeCount:    network.EdgeCount(),
		RequestData:  reqJSON,
		ResponseData: respJSON,
		Tags:         tags,
	}

	if err := s.runs.Create(ctx, run); err != nil {
		telemetry.SetError(ctx, err)
		logger.Log.Error("Failed to persist run", "error", err)
		return nil, err
	}
	return run, nil
}

// Runs даёт доступ к истории запусков; nil когда история отключена
func (s *FlowService) Runs() repository.RunRepository {
	return s.runs
}

// Version возвращает версию сервиса
func (s *FlowService) Version() string {
	return s.version
}
