package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelGenerator генератор Excel отчётов
type ExcelGenerator struct {
	BaseGenerator
}

// NewExcelGenerator создаёт новый генератор
func NewExcelGenerator() *ExcelGenerator {
	return &ExcelGenerator{}
}

// Format возвращает формат генератора
func (g *ExcelGenerator) Format() Format {
	return FormatExcel
}

// Generate генерирует Excel отчёт
func (g *ExcelGenerator) Generate(ctx context.Context, data *ReportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	g.writeFlowSheet(f, data)
	if data.Cut != nil {
		g.writeMinCutSheet(f, data)
	}
	if data.Leakage != nil || data.Failure != nil {
		g.writeSweepSheet(f, data)
	}

	// Удаляем дефолтный лист
	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (g *ExcelGenerator) headerStyle(f *excelize.File) int {
	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	return style
}

func (g *ExcelGenerator) writeFlowSheet(f *excelize.File, data *ReportData) {
	sheetName := "Flow Results"
	f.NewSheet(sheetName)

	headerStyle := g.headerStyle(f)
	row := 1

	f.SetCellValue(sheetName, cellAddr("A", row), g.GetTitle(data))
	f.MergeCell(sheetName, cellAddr("A", row), cellAddr("E", row))
	row++
	f.SetCellValue(sheetName, cellAddr("A", row), fmt.Sprintf("Generated: %s", g.FormatTimestamp(time.Now())))
	row += 2

	if data.Network != nil {
		f.SetCellValue(sheetName, cellAddr("A", row), "Network Information")
		f.SetCellStyle(sheetName, cellAddr("A", row), cellAddr("B", row), headerStyle)
		row++

		f.SetCellValue(sheetName, cellAddr("A", row), "Nodes")
		f.SetCellValue(sheetName, cellAddr("B", row), data.Network.NodeCount())
		row++

		f.SetCellValue(sheetName, cellAddr("A", row), "Pipes")
		f.SetCellValue(sheetName, cellAddr("B", row), data.Network.EdgeCount())
		row++

		f.SetCellValue(sheetName, cellAddr("A", row), "Source")
		f.SetCellValue(sheetName, cellAddr("B", row), data.Network.SourceID())
		row++

		f.SetCellValue(sheetName, cellAddr("A", row), "Sink")
		f.SetCellValue(sheetName, cellAddr("B", row), data.Network.SinkID())
		row += 2
	}

	if data.Result != nil {
		f.SetCellValue(sheetName, cellAddr("A", row), "Flow Results")
		f.SetCellStyle(sheetName, cellAddr("A", row), cellAddr("B", row), headerStyle)
		row++

		f.SetCellValue(sheetName, cellAddr("A", row), "Max Flow")
		f.SetCellValue(sheetName, cellAddr("B", row), data.Result.Value)
		row++

		f.SetCellValue(sheetName, cellAddr("A", row), "Algorithm")
		f.SetCellValue(sheetName, cellAddr("B", row), string(data.Result.Algorithm))
		row++

		f.SetCellValue(sheetName, cellAddr("A", row), "Termination")
		f.SetCellValue(sheetName, cellAddr("B", row), string(data.Result.Reason))
		row++

		f.SetCellValue(sheetName, cellAddr("A", row), "Iterations")
		f.SetCellValue(sheetName, cellAddr("B", row), data.Result.Iterations)
		row++

		f.SetCellValue(sheetName, cellAddr("A", row), "Computation Time")
		f.SetCellValue(sheetName, cellAddr("B", row), g.FormatDuration(data.Result.Duration))
		row += 2

		rows := edgeRows(data)
		if len(rows) > 0 && g.ShouldIncludeRawData(data) {
			f.SetCellValue(sheetName, cellAddr("A", row), "Pipe Flows")
			f.SetCellStyle(sheetName, cellAddr("A", row), cellAddr("E", row), headerStyle)
			row++

			headers := []string{"From", "To", "Flow", "Capacity", "Utilization"}
			for i, h := range headers {
				f.SetCellValue(sheetName, cellAddr(string(rune('A'+i)), row), h)
			}
			f.SetCellStyle(sheetName, cellAddr("A", row), cellAddr("E", row), headerStyle)
			row++

			for _, r := range rows {
				f.SetCellValue(sheetName, cellAddr("A", row), r.From)
				f.SetCellValue(sheetName, cellAddr("B", row), r.To)
				f.SetCellValue(sheetName, cellAddr("C", row), r.Flow)
				f.SetCellValue(sheetName, cellAddr("D", row), r.Capacity)
				f.SetCellValue(sheetName, cellAddr("E", row), r.Utilization)
				row++
			}
		}
	}

	f.SetColWidth(sheetName, "A", "E", 18)
}

func (g *ExcelGenerator) writeMinCutSheet(f *excelize.File, data *ReportData) {
	sheetName := "Min Cut"
	f.NewSheet(sheetName)

	headerStyle := g.headerStyle(f)
	row := 1

	f.SetCellValue(sheetName, cellAddr("A", row), "Minimum Cut")
	f.SetCellStyle(sheetName, cellAddr("A", row), cellAddr("C", row), headerStyle)
	row++

	f.SetCellValue(sheetName, cellAddr("A", row), "Capacity")
	f.SetCellValue(sheetName, cellAddr("B", row), data.Cut.Capacity)
	row++

	f.SetCellValue(sheetName, cellAddr("A", row), "Source Side Nodes")
	f.SetCellValue(sheetName, cellAddr("B", row), len(data.Cut.SourceSide))
	row += 2

	f.SetCellValue(sheetName, cellAddr("A", row), "From")
	f.SetCellValue(sheetName, cellAddr("B", row), "To")
	f.SetCellStyle(sheetName, cellAddr("A", row), cellAddr("B", row), headerStyle)
	row++

	for _, key := range data.Cut.Edges {
		f.SetCellValue(sheetName, cellAddr("A", row), key.From)
		f.SetCellValue(sheetName, cellAddr("B", row), key.To)
		row++
	}

	f.SetColWidth(sheetName, "A", "C", 18)
}

func (g *ExcelGenerator) writeSweepSheet(f *excelize.File, data *ReportData) {
	sheetName := "Scenario Analysis"
	f.NewSheet(sheetName)

	headerStyle := g.headerStyle(f)
	row := 1

	if data.Leakage != nil {
		f.SetCellValue(sheetName, cellAddr("A", row), "Leakage Sweep")
		f.SetCellStyle(sheetName, cellAddr("A", row), cellAddr("D", row), headerStyle)
		row++

		headers := []string{"Leakage", "Max Flow", "Retained", "Termination"}
		for i, h := range headers {
			f.SetCellValue(sheetName, cellAddr(string(rune('A'+i)), row), h)
		}
		row++

		for _, p := range data.Leakage.Points {
			f.SetCellValue(sheetName, cellAddr("A", row), p.Leakage)
			f.SetCellValue(sheetName, cellAddr("B", row), p.Value)
			f.SetCellValue(sheetName, cellAddr("C", row), p.Retained)
			f.SetCellValue(sheetName, cellAddr("D", row), string(p.Reason))
			row++
		}
		row++
	}

	if data.Failure != nil {
		f.SetCellValue(sheetName, cellAddr("A", row), "Failure Analysis")
		f.SetCellStyle(sheetName, cellAddr("A", row), cellAddr("D", row), headerStyle)
		row++

		f.SetCellValue(sheetName, cellAddr("A", row), "Base Flow")
		f.SetCellValue(sheetName, cellAddr("B", row), data.Failure.BaseValue)
		row++

		f.SetCellValue(sheetName, cellAddr("A", row), "Overall Score")
		f.SetCellValue(sheetName, cellAddr("B", row), data.Failure.OverallScore)
		row += 2

		headers := []string{"Failed Pipe", "Remaining Flow", "Reduction", "SPOF"}
		for i, h := range headers {
			f.SetCellValue(sheetName, cellAddr(string(rune('A'+i)), row), h)
		}
		f.SetCellStyle(sheetName, cellAddr("A", row), cellAddr("D", row), headerStyle)
		row++

		for _, impact := range data.Failure.Impacts {
			f.SetCellValue(sheetName, cellAddr("A", row), impact.Edge.String())
			f.SetCellValue(sheetName, cellAddr("B", row), impact.Value)
			f.SetCellValue(sheetName, cellAddr("C", row), impact.Reduction)
			f.SetCellValue(sheetName, cellAddr("D", row), impact.SinglePointOfFailure)
			row++
		}
	}

	f.SetColWidth(sheetName, "A", "D", 18)
}

// cellAddr формирует адрес ячейки
func cellAddr(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
