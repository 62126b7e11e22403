// Package repository хранит историю расчётов потока в PostgreSQL.
package repository

import (
	"context"
	"errors"
	"time"
)

// Стандартные ошибки
var (
	ErrRunNotFound  = errors.New("run not found")
	ErrAccessDenied = errors.New("access denied")
)

// Run модель сохранённого расчёта
type Run struct {
	ID           string
	UserID       string
	Name         string
	Algorithm    string
	FlowValue    float64
	Reason       string
	Iterations   int
	DurationMs   float64
	NodeCount    int
	EdgeCount    int
	RequestData  []byte // JSON
	ResponseData []byte // JSON
	Tags         []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RunSummary краткая информация о расчёте
type RunSummary struct {
	ID         string
	Name       string
	Algorithm  string
	FlowValue  float64
	Reason     string
	Iterations int
	DurationMs float64
	NodeCount  int
	EdgeCount  int
	Tags       []string
	CreatedAt  time.Time
}

// ListFilter фильтры для списка
type ListFilter struct {
	Algorithm string
	Reason    string
	Tags      []string
	MinValue  *float64
	MaxValue  *float64
	StartTime *time.Time
	EndTime   *time.Time
}

// SortOrder порядок сортировки
type SortOrder string

const (
	SortByCreatedDesc SortOrder = "created_desc"
	SortByCreatedAsc  SortOrder = "created_asc"
	SortByValueDesc   SortOrder = "value_desc"
	SortByDuration    SortOrder = "duration_desc"
)

// ListOptions опции для списка
type ListOptions struct {
	Limit  int
	Offset int
	Filter *ListFilter
	Sort   SortOrder
}

// RunStatistics агрегированная статистика расчётов
type RunStatistics struct {
	TotalRuns         int
	AverageFlowValue  float64
	AverageDurationMs float64
	RunsByAlgorithm   map[string]int
	DailyStats        []DailyStats
}

// DailyStats статистика за день
type DailyStats struct {
	Date      string // "2024-01-15"
	Count     int
	TotalFlow float64
}

// RunRepository интерфейс репозитория расчётов
type RunRepository interface {
	// CRUD
	Create(ctx context.Context, run *Run) error
	GetByID(ctx context.Context, id string) (*Run, error)
	Delete(ctx context.Context, id string) error

	// Доступ с проверкой владельца
	GetByUserAndID(ctx context.Context, userID, id string) (*Run, error)
	DeleteByUserAndID(ctx context.Context, userID, id string) error

	// Списки
	List(ctx context.Context, userID string, opts *ListOptions) ([]*RunSummary, int64, error)

	// Статистика
	GetStatistics(ctx context.Context, userID string, startTime, endTime *time.Time) (*RunStatistics, error)

	// Поиск
	Search(ctx context.Context, userID string, query string, limit int) ([]*RunSummary, error)
}
