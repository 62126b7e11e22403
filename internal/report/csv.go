package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
)

// CSVGenerator генератор CSV отчётов
type CSVGenerator struct {
	BaseGenerator
}

// NewCSVGenerator создаёт новый генератор
func NewCSVGenerator() *CSVGenerator {
	return &CSVGenerator{}
}

// Format возвращает формат генератора
func (g *CSVGenerator) Format() Format {
	return FormatCSV
}

// csvWriter обёртка для отслеживания ошибок
type csvWriter struct {
	w   *csv.Writer
	err error
}

func (cw *csvWriter) Write(record []string) {
	if cw.err != nil {
		return
	}
	cw.err = cw.w.Write(record)
}

func (cw *csvWriter) Flush() {
	if cw.err != nil {
		return
	}
	cw.w.Flush()
	cw.err = cw.w.Error()
}

func (cw *csvWriter) Error() error {
	return cw.err
}

// Generate генерирует CSV отчёт
func (g *CSVGenerator) Generate(ctx context.Context, data *ReportData) ([]byte, error) {
	var buf bytes.Buffer
	cw := &csvWriter{w: csv.NewWriter(&buf)}

	cw.Write([]string{"# " + g.GetTitle(data)})
	cw.Write([]string{""})

	g.writeNetwork(cw, data)
	g.writeResult(cw, data)
	g.writeMinCut(cw, data)
	g.writeLeakage(cw, data)
	g.writeFailure(cw, data)

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("csv write error: %w", err)
	}

	return buf.Bytes(), nil
}

func (g *CSVGenerator) writeNetwork(w *csvWriter, data *ReportData) {
	if data.Network == nil {
		return
	}
	w.Write([]string{"Network Info"})
	w.Write([]string{"Nodes", fmt.Sprintf("%d", data.Network.NodeCount())})
	w.Write([]string{"Pipes", fmt.Sprintf("%d", data.Network.EdgeCount())})
	w.Write([]string{"Source", data.Network.SourceID()})
	w.Write([]string{"Sink", data.Network.SinkID()})
	w.Write([]string{""})
}

func (g *CSVGenerator) writeResult(w *csvWriter, data *ReportData) {
	if data.Result == nil {
		return
	}
	w.Write([]string{"Flow Results"})
	w.Write([]string{"Max Flow", g.FormatFloat(data.Result.Value, 4)})
	w.Write([]string{"Algorithm", string(data.Result.Algorithm)})
	w.Write([]string{"Termination", string(data.Result.Reason)})
	w.Write([]string{"Iterations", fmt.Sprintf("%d", data.Result.Iterations)})
	w.Write([]string{"Computation Time", g.FormatDuration(data.Result.Duration)})
	w.Write([]string{""})

	rows := edgeRows(data)
	if len(rows) > 0 && g.ShouldIncludeRawData(data) {
		w.Write([]string{"Pipe Flows"})
		w.Write([]string{"From", "To", "Flow", "Capacity", "Utilization"})
		for _, row := range rows {
			if row.Flow > 0.001 {
				w.Write([]string{
					row.From,
					row.To,
					g.FormatFloat(row.Flow, 4),
					g.FormatFloat(row.Capacity, 4),
					g.FormatFloat(row.Utilization, 4),
				})
			}
		}
		w.Write([]string{""})
	}
}

func (g *CSVGenerator) writeMinCut(w *csvWriter, data *ReportData) {
	if data.Cut == nil {
		return
	}
	w.Write([]string{"Min Cut"})
	w.Write([]string{"Capacity", g.FormatFloat(data.Cut.Capacity, 4)})
	w.Write([]string{"Cut Edges", fmt.Sprintf("%d", len(data.Cut.Edges))})
	for _, key := range data.Cut.Edges {
		w.Write([]string{key.From, key.To})
	}
	w.Write([]string{""})
}

func (g *CSVGenerator) writeLeakage(w *csvWriter, data *ReportData) {
	if data.Leakage == nil {
		return
	}
	w.Write([]string{"Leakage Sweep"})
	w.Write([]string{"Leakage", "Max Flow", "Retained", "Termination"})
	for _, p := range data.Leakage.Points {
		w.Write([]string{
			g.FormatFloat(p.Leakage, 2),
			g.FormatFloat(p.Value, 4),
			g.FormatPercent(p.Retained),
			string(p.Reason),
		})
	}
	w.Write([]string{""})
}

func (g *CSVGenerator) writeFailure(w *csvWriter, data *ReportData) {
	if data.Failure == nil {
		return
	}
	w.Write([]string{"Failure Analysis"})
	w.Write([]string{"Base Flow", g.FormatFloat(data.Failure.BaseValue, 4)})
	w.Write([]string{"Overall Score", g.FormatFloat(data.Failure.OverallScore, 4)})
	w.Write([]string{""})
	w.Write([]string{"Failed Pipe", "Remaining Flow", "Reduction", "Single Point Of Failure"})
	for _, impact := range data.Failure.Impacts {
		w.Write([]string{
			impact.Edge.String(),
			g.FormatFloat(impact.Value, 4),
			g.FormatFloat(impact.Reduction, 4),
			fmt.Sprintf("%v", impact.SinglePointOfFailure),
		})
	}
	w.Write([]string{""})
}
