package app

import (
	"encoding/json"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"

	"finchat/internal/types"
)

const (
	chartMaxLabelWidth = 20
	chartMinBarWidth   = 4
	tableMinColumn     = 4
	tableColumnGap     = "  "
)

type tableMetadata struct {
	Columns []string            `json:"columns"`
	Rows    [][]json.RawMessage `json:"rows"`
}

type chartMetadata struct {
	Title  string            `json:"title"`
	Labels []string          `json:"labels"`
	Values []decimal.Decimal `json:"values"`
}

type tableCell struct {
	text    string
	numeric bool
}

// renderStructured renders TABLE and CHART payloads. It reports false when
// the message should be shown as plain content instead.
func renderStructured(msg *types.ChatMessage, width int) (string, bool) {
	if msg == nil || len(msg.Metadata) == 0 {
		return "", false
	}
	switch msg.ResponseType {
	case types.ResponseTypeTable:
		var meta tableMetadata
		if err := json.Unmarshal(msg.Metadata, &meta); err != nil || len(meta.Columns) == 0 {
			return "", false
		}
		return renderTable(meta, width), true
	case types.ResponseTypeChart:
		var meta chartMetadata
		if err := json.Unmarshal(msg.Metadata, &meta); err != nil || len(meta.Values) == 0 {
			return "", false
		}
		return renderChart(meta, width), true
	default:
		return "", false
	}
}

func renderTable(meta tableMetadata, width int) string {
	rows := make([][]tableCell, 0, len(meta.Rows))
	for _, raw := range meta.Rows {
		row := make([]tableCell, len(meta.Columns))
		for i := range meta.Columns {
			if i < len(raw) {
				row[i] = parseTableCell(raw[i])
			}
		}
		rows = append(rows, row)
	}

	widths := make([]int, len(meta.Columns))
	for i, col := range meta.Columns {
		widths[i] = runewidth.StringWidth(col)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell.text))
		}
	}
	fitColumns(widths, width)

	lines := make([]string, 0, len(rows)+2)
	header := make([]string, len(meta.Columns))
	rule := make([]string, len(meta.Columns))
	for i, col := range meta.Columns {
		header[i] = runewidth.FillRight(runewidth.Truncate(col, widths[i], "…"), widths[i])
		rule[i] = strings.Repeat("─", widths[i])
	}
	lines = append(lines, tableHeaderStyle.Render(strings.Join(header, tableColumnGap)))
	lines = append(lines, dividerStyle.Render(strings.Join(rule, tableColumnGap)))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			text := runewidth.Truncate(cell.text, widths[i], "…")
			if cell.numeric {
				cells[i] = runewidth.FillLeft(text, widths[i])
			} else {
				cells[i] = runewidth.FillRight(text, widths[i])
			}
		}
		lines = append(lines, strings.TrimRight(strings.Join(cells, tableColumnGap), " "))
	}
	return strings.Join(lines, "\n")
}

// fitColumns narrows the widest columns until the row fits in width.
func fitColumns(widths []int, width int) {
	if width <= 0 || len(widths) == 0 {
		return
	}
	gaps := runewidth.StringWidth(tableColumnGap) * (len(widths) - 1)
	for {
		total := gaps
		widest := 0
		for i, w := range widths {
			total += w
			if w > widths[widest] {
				widest = i
			}
		}
		if total <= width || widths[widest] <= tableMinColumn {
			return
		}
		widths[widest]--
	}
}

func parseTableCell(raw json.RawMessage) tableCell {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return tableCell{}
	}
	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			return tableCell{text: text}
		}
		return tableCell{text: trimmed}
	}
	if value, err := decimal.NewFromString(trimmed); err == nil {
		return tableCell{text: value.StringFixed(2), numeric: true}
	}
	return tableCell{text: trimmed}
}

func renderChart(meta chartMetadata, width int) string {
	labelWidth := 0
	labels := make([]string, len(meta.Values))
	for i := range meta.Values {
		if i < len(meta.Labels) {
			labels[i] = meta.Labels[i]
		}
		labels[i] = runewidth.Truncate(labels[i], chartMaxLabelWidth, "…")
		labelWidth = max(labelWidth, runewidth.StringWidth(labels[i]))
	}
	values := make([]string, len(meta.Values))
	valueWidth := 0
	maxAbs := decimal.Zero
	for i, value := range meta.Values {
		values[i] = value.StringFixed(2)
		valueWidth = max(valueWidth, len(values[i]))
		if value.Abs().GreaterThan(maxAbs) {
			maxAbs = value.Abs()
		}
	}
	barWidth := width - labelWidth - valueWidth - 2
	if barWidth < chartMinBarWidth {
		barWidth = chartMinBarWidth
	}

	lines := make([]string, 0, len(meta.Values)+1)
	if title := strings.TrimSpace(meta.Title); title != "" {
		lines = append(lines, tableHeaderStyle.Render(title))
	}
	for i, value := range meta.Values {
		length := 0
		if maxAbs.IsPositive() {
			length = int(value.Abs().Div(maxAbs).Mul(decimal.NewFromInt(int64(barWidth))).Round(0).IntPart())
		}
		style := chartBarStyle
		if value.IsNegative() {
			style = chartNegativeStyle
		}
		bar := style.Render(strings.Repeat("█", length)) + strings.Repeat(" ", barWidth-length)
		line := runewidth.FillRight(labels[i], labelWidth) + " " + bar + " " + runewidth.FillLeft(values[i], valueWidth)
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
