package report

import (
	"context"
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// PDFGenerator генератор PDF отчётов
type PDFGenerator struct {
	BaseGenerator
}

// NewPDFGenerator создаёт новый генератор
func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{}
}

// Format возвращает формат генератора
func (g *PDFGenerator) Format() Format {
	return FormatPDF
}

// Стили
var (
	// Цвета
	primaryColor   = &props.Color{Red: 52, Green: 152, Blue: 219}  // #3498db
	headerBgColor  = &props.Color{Red: 44, Green: 62, Blue: 80}    // #2c3e50
	successColor   = &props.Color{Red: 39, Green: 174, Blue: 96}   // #27ae60
	dangerColor    = &props.Color{Red: 231, Green: 76, Blue: 60}   // #e74c3c
	lightGrayColor = &props.Color{Red: 236, Green: 240, Blue: 241} // #ecf0f1
	darkGrayColor  = &props.Color{Red: 127, Green: 140, Blue: 141} // #7f8c8d

	// Стили текста
	titleStyle = props.Text{
		Size:  24,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: headerBgColor,
	}

	h2Style = props.Text{
		Size:  16,
		Style: fontstyle.Bold,
		Color: headerBgColor,
		Top:   5,
	}

	normalStyle = props.Text{
		Size: 10,
	}

	boldStyle = props.Text{
		Size:  10,
		Style: fontstyle.Bold,
	}

	smallStyle = props.Text{
		Size:  8,
		Color: darkGrayColor,
	}

	metricValueStyle = props.Text{
		Size:  20,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: primaryColor,
	}

	metricLabelStyle = props.Text{
		Size:  9,
		Align: align.Center,
		Color: darkGrayColor,
	}

	tableHeaderStyle = &props.Cell{
		BackgroundColor: primaryColor,
	}

	tableHeaderTextStyle = props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
		Align: align.Center,
	}

	tableCellStyle = &props.Cell{
		BorderType:  border.Bottom,
		BorderColor: lightGrayColor,
	}

	tableCellTextStyle = props.Text{
		Size:  9,
		Align: align.Center,
	}
)

// Generate генерирует PDF отчёт
func (g *PDFGenerator) Generate(ctx context.Context, data *ReportData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	// Заголовок документа
	g.addHeader(m, data)

	g.addFlowContent(m, data)

	if data.Cut != nil {
		g.addMinCutContent(m, data)
	}
	if data.Leakage != nil {
		g.addLeakageContent(m, data)
	}
	if data.Failure != nil {
		g.addFailureContent(m, data)
	}

	// Футер
	g.addFooter(m)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return doc.GetBytes(), nil
}

func (g *PDFGenerator) addHeader(m core.Maroto, data *ReportData) {
	m.AddRow(15,
		text.NewCol(12, g.GetTitle(data), titleStyle),
	)

	m.AddRow(5,
		line.NewCol(12),
	)

	// Метаданные
	m.AddRow(6,
		text.NewCol(6, fmt.Sprintf("Author: %s", g.GetAuthor(data)), smallStyle),
		text.NewCol(6, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04:05")),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Right}),
	)

	if desc := g.GetDescription(data); desc != "" {
		m.AddRow(5,
			text.NewCol(12, desc, smallStyle),
		)
	}

	m.AddRow(8) // Отступ
}

func (g *PDFGenerator) addFlowContent(m core.Maroto, data *ReportData) {
	// Информация о сети
	if data.Network != nil {
		g.addSection(m, "Network Information")
		g.addMetricCards(m, []metricCard{
			{Label: "Nodes", Value: fmt.Sprintf("%d", data.Network.NodeCount())},
			{Label: "Pipes", Value: fmt.Sprintf("%d", data.Network.EdgeCount())},
			{Label: "Source", Value: data.Network.SourceID()},
			{Label: "Sink", Value: data.Network.SinkID()},
		})
	}

	// Результаты расчёта
	if data.Result != nil {
		g.addSection(m, "Flow Results")

		// Главные метрики
		g.addMetricCards(m, []metricCard{
			{Label: "Maximum Flow", Value: g.FormatFloat(data.Result.Value, 4), Highlight: true},
		})

		// Дополнительные метрики
		m.AddRow(5)
		g.addMetricCards(m, []metricCard{
			{Label: "Algorithm", Value: string(data.Result.Algorithm)},
			{Label: "Iterations", Value: fmt.Sprintf("%d", data.Result.Iterations)},
			{Label: "Computation Time", Value: g.FormatDuration(data.Result.Duration)},
		})

		// Таблица потоков по трубам
		rows := edgeRows(data)
		if len(rows) > 0 && g.ShouldIncludeRawData(data) {
			g.addSection(m, "Pipe Flows")
			g.addEdgeFlowsTable(m, rows)
		}
	}

	// Статистика потока
	if data.Stats != nil {
		g.addSection(m, "Flow Statistics")
		g.addKeyValueTable(m, []keyValue{
			{"Active Pipes", fmt.Sprintf("%d / %d", data.Stats.ActiveEdges, data.Stats.EdgeCount)},
			{"Saturated Pipes", fmt.Sprintf("%d", data.Stats.SaturatedEdges)},
			{"Mean Utilization", g.FormatPercent(data.Stats.MeanUtilization)},
			{"Bottlenecks", fmt.Sprintf("%d", len(data.Stats.Bottlenecks))},
		})
	}
}

func (g *PDFGenerator) addMinCutContent(m core.Maroto, data *ReportData) {
	g.addSection(m, "Minimum Cut")

	g.addMetricCards(m, []metricCard{
		{Label: "Cut Capacity", Value: g.FormatFloat(data.Cut.Capacity, 4), Highlight: true},
		{Label: "Cut Pipes", Value: fmt.Sprintf("%d", len(data.Cut.Edges))},
		{Label: "Source Side", Value: fmt.Sprintf("%d nodes", len(data.Cut.SourceSide))},
	})

	m.AddRow(5)

	// Заголовок таблицы
	m.AddRow(8,
		text.NewCol(6, "From", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(6, "To", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
	)

	for _, key := range data.Cut.Edges {
		m.AddRow(6,
			text.NewCol(6, key.From, tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(6, key.To, tableCellTextStyle).WithStyle(tableCellStyle),
		)
	}
}

func (g *PDFGenerator) addLeakageContent(m core.Maroto, data *ReportData) {
	g.addSection(m, "Leakage Sweep")

	collapse := "never"
	if data.Leakage.CollapseLeakage >= 0 {
		collapse = g.FormatPercent(data.Leakage.CollapseLeakage)
	}

	g.addMetricCards(m, []metricCard{
		{Label: "Base Flow", Value: g.FormatFloat(data.Leakage.BaseValue, 4)},
		{Label: "Points", Value: fmt.Sprintf("%d", len(data.Leakage.Points))},
		{Label: "Collapse Leakage", Value: collapse, Highlight: true},
	})

	m.AddRow(5)

	// Заголовок таблицы
	m.AddRow(8,
		text.NewCol(3, "Leakage", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(3, "Max Flow", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(3, "Retained", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(3, "Termination", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
	)

	for _, p := range data.Leakage.Points {
		m.AddRow(6,
			text.NewCol(3, g.FormatPercent(p.Leakage), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(3, g.FormatFloat(p.Value, 4), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(3, g.FormatPercent(p.Retained), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(3, string(p.Reason), tableCellTextStyle).WithStyle(tableCellStyle),
		)
	}
}

func (g *PDFGenerator) addFailureContent(m core.Maroto, data *ReportData) {
	g.addSection(m, "Failure Analysis")

	r := data.Failure

	g.addMetricCards(m, []metricCard{
		{Label: "Base Flow", Value: g.FormatFloat(r.BaseValue, 4)},
		{Label: "Overall Score", Value: g.FormatFloat(r.OverallScore, 2), Highlight: true},
		{Label: "Single Points of Failure", Value: fmt.Sprintf("%d", len(r.SinglePointsOfFailure))},
	})

	m.AddRow(5)
	items := []keyValue{
		{"Connectivity Robustness", g.FormatPercent(r.ConnectivityRobustness)},
		{"Flow Robustness", g.FormatPercent(r.FlowRobustness)},
		{"Redundancy Level", g.FormatFloat(r.RedundancyLevel, 2)},
		{"Worst Case Reduction", g.FormatPercent(r.WorstReduction)},
	}
	if r.MostCritical != nil {
		items = append(items, keyValue{"Most Critical Pipe", r.MostCritical.String()})
	}
	g.addKeyValueTable(m, items)

	m.AddRow(5)

	// Заголовок таблицы
	m.AddRow(8,
		text.NewCol(4, "Failed Pipe", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(3, "Remaining Flow", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(3, "Reduction", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "SPOF", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
	)

	for _, impact := range r.Impacts {
		spofStyle := tableCellTextStyle
		if impact.SinglePointOfFailure {
			spofStyle.Color = dangerColor
		} else {
			spofStyle.Color = successColor
		}

		m.AddRow(6,
			text.NewCol(4, impact.Edge.String(), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(3, g.FormatFloat(impact.Value, 4), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(3, g.FormatPercent(impact.ReductionFraction), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, fmt.Sprintf("%v", impact.SinglePointOfFailure), spofStyle).WithStyle(tableCellStyle),
		)
	}
}

// === Вспомогательные методы ===

type metricCard struct {
	Label     string
	Value     string
	Highlight bool
}

func (g *PDFGenerator) addMetricCards(m core.Maroto, cards []metricCard) {
	if len(cards) == 0 {
		return
	}

	colSize := 12 / len(cards)
	if colSize < 2 {
		colSize = 2
	}

	var cols []core.Col
	for _, card := range cards {
		valueStyle := metricValueStyle
		if !card.Highlight {
			valueStyle.Size = 14
		}

		cols = append(cols,
			col.New(colSize).Add(
				text.New(card.Value, valueStyle),
				text.New(card.Label, metricLabelStyle),
			),
		)
	}

	m.AddRow(20, cols...)
}

type keyValue struct {
	Key   string
	Value string
}

func (g *PDFGenerator) addKeyValueTable(m core.Maroto, items []keyValue) {
	for _, item := range items {
		m.AddRow(6,
			text.NewCol(6, item.Key, boldStyle),
			text.NewCol(6, item.Value, normalStyle),
		)
	}
}

func (g *PDFGenerator) addSection(m core.Maroto, title string) {
	m.AddRow(10,
		text.NewCol(12, title, h2Style),
	)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: primaryColor}),
	)
	m.AddRow(5)
}

func (g *PDFGenerator) addEdgeFlowsTable(m core.Maroto, rows []edgeRow) {
	// Заголовок
	m.AddRow(8,
		text.NewCol(3, "From", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(3, "To", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Flow", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Capacity", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Utilization", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
	)

	// Данные (ограничиваем количество для PDF)
	maxRows := 30
	count := 0
	for _, r := range rows {
		if r.Flow <= 0.001 {
			continue
		}
		if count >= maxRows {
			m.AddRow(6,
				text.NewCol(12, fmt.Sprintf("... and %d more rows", len(rows)-maxRows), smallStyle),
			)
			break
		}

		m.AddRow(6,
			text.NewCol(3, r.From, tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(3, r.To, tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, g.FormatFloat(r.Flow, 4), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, g.FormatFloat(r.Capacity, 4), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, g.FormatPercent(r.Utilization), tableCellTextStyle).WithStyle(tableCellStyle),
		)
		count++
	}
}

func (g *PDFGenerator) addFooter(m core.Maroto) {
	m.AddRow(10)
	m.AddRow(5,
		line.NewCol(12),
	)
	m.AddRow(5,
		text.NewCol(12,
			fmt.Sprintf("Generated by Waterflow Engine | %s", time.Now().Format("2006-01-02 15:04:05")),
			props.Text{Size: 7, Color: darkGrayColor, Align: align.Center}),
	)
}
