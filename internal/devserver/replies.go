package devserver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"finchat/internal/types"
)

const (
	failTag  = "#fail"
	tableTag = "#table"
	chartTag = "#chart"

	failReason = "rate limited"
)

type reply struct {
	content      string
	responseType types.ResponseType
	metadata     json.RawMessage
}

type spendRow struct {
	category string
	amount   string
}

var sampleSpending = []spendRow{
	{"Groceries", "412.35"},
	{"Rent", "1500"},
	{"Transport", "86.40"},
	{"Dining out", "129.99"},
}

var sampleMonths = []spendRow{
	{"Jul", "2011.20"},
	{"Aug", "1874.05"},
	{"Sep", "2128.74"},
	{"Oct", "1650"},
}

// composeReply picks a canned answer. Tags in the message select structured
// replies.
func composeReply(message string) (reply, error) {
	switch {
	case strings.Contains(message, tableTag):
		return tableReply()
	case strings.Contains(message, chartTag):
		return chartReply()
	}
	question := strings.Join(strings.Fields(message), " ")
	return reply{
		content:      fmt.Sprintf("Here is what I found about \"%s\": your spending is **on track** this month and no unusual charges showed up.", question),
		responseType: types.ResponseTypeText,
	}, nil
}

func tableReply() (reply, error) {
	rows := make([][]any, 0, len(sampleSpending))
	total := decimal.Zero
	for _, row := range sampleSpending {
		amount, err := decimal.NewFromString(row.amount)
		if err != nil {
			return reply{}, err
		}
		total = total.Add(amount)
		rows = append(rows, []any{row.category, json.Number(amount.String())})
	}
	metadata, err := json.Marshal(map[string]any{
		"columns": []string{"Category", "Spent"},
		"rows":    rows,
	})
	if err != nil {
		return reply{}, err
	}
	return reply{
		content:      fmt.Sprintf("Spending by category this month, %s in total.", total.StringFixed(2)),
		responseType: types.ResponseTypeTable,
		metadata:     metadata,
	}, nil
}

func chartReply() (reply, error) {
	labels := make([]string, 0, len(sampleMonths))
	values := make([]json.Number, 0, len(sampleMonths))
	var peak spendRow
	peakAmount := decimal.Zero
	for _, month := range sampleMonths {
		amount, err := decimal.NewFromString(month.amount)
		if err != nil {
			return reply{}, err
		}
		if amount.GreaterThan(peakAmount) {
			peak, peakAmount = month, amount
		}
		labels = append(labels, month.category)
		values = append(values, json.Number(amount.String()))
	}
	metadata, err := json.Marshal(map[string]any{
		"title":  "Monthly spending",
		"labels": labels,
		"values": values,
	})
	if err != nil {
		return reply{}, err
	}
	return reply{
		content:      fmt.Sprintf("Monthly spending peaked in %s at %s.", peak.category, peakAmount.StringFixed(2)),
		responseType: types.ResponseTypeChart,
		metadata:     metadata,
	}, nil
}

// splitDeltas breaks content into word-sized chunks that concatenate back to
// the original text.
func splitDeltas(content string) []string {
	var out []string
	start := 0
	for i := 1; i < len(content); i++ {
		if content[i] == ' ' {
			out = append(out, content[start:i])
			start = i
		}
	}
	if start < len(content) {
		out = append(out, content[start:])
	}
	return out
}
