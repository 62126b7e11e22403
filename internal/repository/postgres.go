package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq"

	"waterflow/pkg/database"
	"waterflow/pkg/telemetry"
)

// PostgresRunRepository PostgreSQL реализация
type PostgresRunRepository struct {
	db database.DB
}

// NewPostgresRunRepository создаёт новый репозиторий
func NewPostgresRunRepository(db database.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

func (r *PostgresRunRepository) Create(ctx context.Context, run *Run) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Create")
	defer span.End()

	query := `
		INSERT INTO runs (
			user_id, name, algorithm, flow_value, reason,
			iterations, duration_ms, node_count, edge_count,
			request_data, response_data, tags
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		run.UserID,
		run.Name,
		run.Algorithm,
		run.FlowValue,
		run.Reason,
		run.Iterations,
		run.DurationMs,
		run.NodeCount,
		run.EdgeCount,
		run.RequestData,
		run.ResponseData,
		run.Tags,
	).Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

func (r *PostgresRunRepository) GetByID(ctx context.Context, id string) (*Run, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.GetByID")
	defer span.End()

	query := `
		SELECT
			id, user_id, name, algorithm, flow_value, reason,
			iterations, duration_ms, node_count, edge_count,
			request_data, response_data, tags, created_at, updated_at
		FROM runs
		WHERE id = $1
	`

	run := &Run{}
	var tags pgtype.Array[string]

	err := r.db.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.UserID,
		&run.Name,
		&run.Algorithm,
		&run.FlowValue,
		&run.Reason,
		&run.Iterations,
		&run.DurationMs,
		&run.NodeCount,
		&run.EdgeCount,
		&run.RequestData,
		&run.ResponseData,
		&tags,
		&run.CreatedAt,
		&run.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Tags = tags.Elements

	return run, nil
}

func (r *PostgresRunRepository) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Delete")
	defer span.End()

	query := `DELETE FROM runs WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

func (r *PostgresRunRepository) List(
	ctx context.Context,
	userID string,
	opts *ListOptions,
) ([]*RunSummary, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.List")
	defer span.End()

	if opts == nil {
		opts = &ListOptions{Limit: 20, Offset: 0, Sort: SortByCreatedDesc}
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}

	where, args := r.buildWhereClause(userID, opts.Filter)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM runs WHERE %s`, where)
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	orderBy := r.buildOrderBy(opts.Sort)

	selectQuery := fmt.Sprintf(`
		SELECT
			id, name, algorithm, flow_value, reason,
			iterations, duration_ms, node_count, edge_count, tags, created_at
		FROM runs
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, where, orderBy, len(args)+1, len(args)+2)

	args = append(args, opts.Limit, opts.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []*RunSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return results, total, nil
}

func scanSummary(rows pgx.Rows) (*RunSummary, error) {
	summary := &RunSummary{}
	var tags pgtype.Array[string]

	err := rows.Scan(
		&summary.ID,
		&summary.Name,
		&summary.Algorithm,
		&summary.FlowValue,
		&summary.Reason,
		&summary.Iterations,
		&summary.DurationMs,
		&summary.NodeCount,
		&summary.EdgeCount,
		&tags,
		&summary.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	summary.Tags = tags.Elements
	return summary, nil
}

func (r *PostgresRunRepository) buildWhereClause(userID string, filter *ListFilter) (string, []any) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}
	argNum := 2

	if filter != nil {
		if filter.Algorithm != "" {
			conditions = append(conditions, fmt.Sprintf("algorithm = $%d", argNum))
			args = append(args, filter.Algorithm)
			argNum++
		}

		if filter.Reason != "" {
			conditions = append(conditions, fmt.Sprintf("reason = $%d", argNum))
			args = append(args, filter.Reason)
			argNum++
		}

		if len(filter.Tags) > 0 {
			conditions = append(conditions, fmt.Sprintf("tags && $%d", argNum))
			args = append(args, pq.Array(filter.Tags))
			argNum++
		}

		if filter.MinValue != nil {
			conditions = append(conditions, fmt.Sprintf("flow_value >= $%d", argNum))
			args = append(args, *filter.MinValue)
			argNum++
		}

		if filter.MaxValue != nil {
			conditions = append(conditions, fmt.Sprintf("flow_value <= $%d", argNum))
			args = append(args, *filter.MaxValue)
			argNum++
		}

		if filter.StartTime != nil {
			conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argNum))
			args = append(args, *filter.StartTime)
			argNum++
		}

		if filter.EndTime != nil {
			conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argNum))
			args = append(args, *filter.EndTime)
		}
	}

	return strings.Join(conditions, " AND "), args
}

func (r *PostgresRunRepository) buildOrderBy(sort SortOrder) string {
	switch sort {
	case SortByCreatedAsc:
		return "created_at ASC"
	case SortByValueDesc:
		return "flow_value DESC"
	case SortByDuration:
		return "duration_ms DESC"
	default:
		return "created_at DESC"
	}
}

func (r *PostgresRunRepository) GetStatistics(
	ctx context.Context,
	userID string,
	startTime, endTime *time.Time,
) (*RunStatistics, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.GetStatistics")
	defer span.End()

	where := "user_id = $1"
	args := []any{userID}
	argNum := 2

	if startTime != nil {
		where += fmt.Sprintf(" AND created_at >= $%d", argNum)
		args = append(args, *startTime)
		argNum++
	}
	if endTime != nil {
		where += fmt.Sprintf(" AND created_at <= $%d", argNum)
		args = append(args, *endTime)
	}

	// Три запроса читают один снимок данных, иначе сводка и разбивки
	// могут разойтись между собой.
	return database.WithTransactionResult(ctx, r.db, func(tx pgx.Tx) (*RunStatistics, error) {
		stats := &RunStatistics{
			RunsByAlgorithm: make(map[string]int),
			DailyStats:      []DailyStats{},
		}

		statsQuery := fmt.Sprintf(`
			SELECT
				COUNT(*),
				COALESCE(AVG(flow_value), 0),
				COALESCE(AVG(duration_ms), 0)
			FROM runs
			WHERE %s
		`, where)

		err := tx.QueryRow(ctx, statsQuery, args...).Scan(
			&stats.TotalRuns,
			&stats.AverageFlowValue,
			&stats.AverageDurationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to get stats: %w", err)
		}

		algoQuery := fmt.Sprintf(`
			SELECT algorithm, COUNT(*)
			FROM runs
			WHERE %s
			GROUP BY algorithm
		`, where)

		algoRows, err := tx.Query(ctx, algoQuery, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to get algorithm stats: %w", err)
		}
		defer algoRows.Close()

		for algoRows.Next() {
			var algorithm string
			var count int
			if err := algoRows.Scan(&algorithm, &count); err != nil {
				return nil, fmt.Errorf("failed to scan algorithm stats: %w", err)
			}
			stats.RunsByAlgorithm[algorithm] = count
		}
		algoRows.Close()

		dailyQuery := fmt.Sprintf(`
			SELECT
				DATE(created_at) as date,
				COUNT(*) as count,
				COALESCE(SUM(flow_value), 0) as total_flow
			FROM runs
			WHERE %s
			GROUP BY DATE(created_at)
			ORDER BY date DESC
			LIMIT 30
		`, where)

		dailyRows, err := tx.Query(ctx, dailyQuery, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to get daily stats: %w", err)
		}
		defer dailyRows.Close()

		for dailyRows.Next() {
			var ds DailyStats
			var date time.Time
			if err := dailyRows.Scan(&date, &ds.Count, &ds.TotalFlow); err != nil {
				return nil, fmt.Errorf("failed to scan daily stats: %w", err)
			}
			ds.Date = date.Format("2006-01-02")
			stats.DailyStats = append(stats.DailyStats, ds)
		}

		return stats, nil
	})
}

func (r *PostgresRunRepository) Search(
	ctx context.Context,
	userID string,
	query string,
	limit int,
) ([]*RunSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Search")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	searchQuery := `
		SELECT
			id, name, algorithm, flow_value, reason,
			iterations, duration_ms, node_count, edge_count, tags, created_at
		FROM runs
		WHERE user_id = $1
			AND to_tsvector('simple', name) @@ plainto_tsquery('simple', $2)
		ORDER BY ts_rank(to_tsvector('simple', name), plainto_tsquery('simple', $2)) DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, searchQuery, userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search runs: %w", err)
	}
	defer rows.Close()

	var results []*RunSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, summary)
	}

	return results, nil
}

// GetByUserAndID получает расчёт с проверкой владельца
func (r *PostgresRunRepository) GetByUserAndID(ctx context.Context, userID, id string) (*Run, error) {
	run, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if run.UserID != userID {
		return nil, ErrAccessDenied
	}

	return run, nil
}

// DeleteByUserAndID удаляет расчёт с проверкой владельца
func (r *PostgresRunRepository) DeleteByUserAndID(ctx context.Context, userID, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.DeleteByUserAndID")
	defer span.End()

	query := `DELETE FROM runs WHERE id = $1 AND user_id = $2`

	result, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}
