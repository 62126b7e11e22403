// Package report генерирует отчёты по расчётам потока в форматах
// JSON, CSV, Excel и PDF.
package report

import (
	"context"
	"fmt"
	"time"

	"waterflow/internal/sweep"
	"waterflow/internal/waternet"
	"waterflow/pkg/apperror"
)

// Format формат отчёта
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

// Formats возвращает поддерживаемые форматы
func Formats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatExcel, FormatPDF}
}

// ContentType возвращает MIME-тип формата
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Extension возвращает расширение файла
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatExcel:
		return "xlsx"
	case FormatPDF:
		return "pdf"
	default:
		return "json"
	}
}

// Options настройки генерации
type Options struct {
	Title          string
	Author         string
	Description    string
	IncludeRawData bool
}

// ReportData данные для генерации отчёта
type ReportData struct {
	Options *Options

	Network *waternet.Network
	Result  *waternet.FlowResult
	Cut     *waternet.MinCut
	Stats   *waternet.Statistics

	// Результаты сценарных анализов (опционально)
	Leakage *sweep.LeakageReport
	Failure *sweep.FailureReport
}

// Generator интерфейс генератора отчётов
type Generator interface {
	Generate(ctx context.Context, data *ReportData) ([]byte, error)
	Format() Format
}

// New создаёт генератор для заданного формата
func New(format Format) (Generator, error) {
	switch format {
	case FormatJSON:
		return NewJSONGenerator(), nil
	case FormatCSV:
		return NewCSVGenerator(), nil
	case FormatExcel:
		return NewExcelGenerator(), nil
	case FormatPDF:
		return NewPDFGenerator(), nil
	default:
		return nil, apperror.New(apperror.CodeInvalidArgument,
			fmt.Sprintf("unsupported report format %q", format))
	}
}

// BaseGenerator базовые утилиты для генераторов
type BaseGenerator struct{}

// GetTitle возвращает заголовок отчёта
func (b *BaseGenerator) GetTitle(data *ReportData) string {
	if data.Options != nil && data.Options.Title != "" {
		return data.Options.Title
	}
	return "Water Network Flow Report"
}

// GetAuthor возвращает автора отчёта
func (b *BaseGenerator) GetAuthor(data *ReportData) string {
	if data.Options != nil && data.Options.Author != "" {
		return data.Options.Author
	}
	return "Waterflow Engine"
}

// GetDescription возвращает описание
func (b *BaseGenerator) GetDescription(data *ReportData) string {
	if data.Options != nil {
		return data.Options.Description
	}
	return ""
}

// ShouldIncludeRawData проверяет нужно ли включать потоки по рёбрам
func (b *BaseGenerator) ShouldIncludeRawData(data *ReportData) bool {
	if data.Options == nil {
		return true
	}
	return data.Options.IncludeRawData
}

// FormatFloat форматирует число с заданной точностью
func (b *BaseGenerator) FormatFloat(v float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, v)
}

// FormatPercent форматирует процент
func (b *BaseGenerator) FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// FormatDuration форматирует длительность
func (b *BaseGenerator) FormatDuration(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	if ms < 1000 {
		return fmt.Sprintf("%.2f ms", ms)
	}
	return fmt.Sprintf("%.2f s", ms/1000)
}

// FormatTimestamp форматирует время
func (b *BaseGenerator) FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// edgeRow строка таблицы потоков
type edgeRow struct {
	From        string
	To          string
	Flow        float64
	Capacity    float64
	Utilization float64
}

// edgeRows собирает потоки по рёбрам в порядке объявления сети
func edgeRows(data *ReportData) []edgeRow {
	if data.Network == nil || data.Result == nil {
		return nil
	}
	rows := make([]edgeRow, 0, data.Network.EdgeCount())
	for _, edge := range data.Network.Edges() {
		flow := data.Result.Flow(edge.Key())
		util := 0.0
		if edge.Capacity > 0 {
			util = flow / edge.Capacity
		}
		rows = append(rows, edgeRow{
			From:        edge.From,
			To:          edge.To,
			Flow:        flow,
			Capacity:    edge.Capacity,
			Utilization: util,
		})
	}
	return rows
}
