package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhatro-app/report-service/internal/models"
	"github.com/nhatro-app/report-service/pkg/logger"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// currencyKeywords classifies numeric columns as currency when their name
// contains one of these (case-insensitive substring match). Single-sample
// inference can misclassify, e.g. a numeric ID column named total_ids;
// callers are expected to treat inferred types as a starting point.
var currencyKeywords = []string{"price", "amount", "revenue", "fee", "charge", "total", "money"}

// dateLayouts are tried in order when probing string values for dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// VariableManager infers semantic column types from one sample row and
// formats typed values for vi-VN display.
type VariableManager struct {
	printer    *message.Printer
	trueLabel  string
	falseLabel string
}

func NewVariableManager() *VariableManager {
	return &VariableManager{
		printer:    message.NewPrinter(language.Vietnamese),
		trueLabel:  "Có",
		falseLabel: "Không",
	}
}

// WithBooleanLabels overrides the default Có/Không boolean rendering.
func (m *VariableManager) WithBooleanLabels(trueLabel, falseLabel string) *VariableManager {
	m.trueLabel = trueLabel
	m.falseLabel = falseLabel
	return m
}

// WithLocale overrides the default vi-VN number formatting locale.
func (m *VariableManager) WithLocale(tag language.Tag) *VariableManager {
	m.printer = message.NewPrinter(tag)
	return m
}

// InferType classifies one sample value by its column name and Go type.
func (m *VariableManager) InferType(key string, value interface{}) models.FieldType {
	switch v := value.(type) {
	case nil:
		return models.FieldString
	case bool:
		return models.FieldBoolean
	case time.Time:
		return models.FieldDate
	case string:
		if len(v) > 8 {
			if _, ok := parseDate(v); ok {
				return models.FieldDate
			}
		}
		return models.FieldString
	default:
		if _, ok := toFloat(value); ok {
			if hasCurrencyKeyword(key) {
				return models.FieldCurrency
			}
			return models.FieldNumber
		}
		return models.FieldString
	}
}

// InferTypes runs InferType over every column of one sample row.
func (m *VariableManager) InferTypes(row map[string]interface{}) map[string]models.FieldType {
	types := make(map[string]models.FieldType, len(row))
	for key, value := range row {
		types[key] = m.InferType(key, value)
	}
	return types
}

// FormatValue renders a typed value as a vi-VN display string. It never
// returns an error: any failure falls back to the raw value's string form.
func (m *VariableManager) FormatValue(value interface{}, fieldType models.FieldType) (formatted string) {
	if value == nil {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			formatted = fmt.Sprintf("%v", value)
		}
	}()

	switch fieldType {
	case models.FieldCurrency:
		f, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		return m.printer.Sprintf("%v ₫", number.Decimal(f, number.MaxFractionDigits(0)))
	case models.FieldDate:
		if t, ok := value.(time.Time); ok {
			return t.Format("02/01/2006")
		}
		if s, ok := value.(string); ok {
			if t, ok := parseDate(s); ok {
				return t.Format("02/01/2006")
			}
		}
		// Invalid dates pass through unchanged.
		return fmt.Sprintf("%v", value)
	case models.FieldNumber:
		f, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		return m.printer.Sprintf("%v", number.Decimal(f, number.MaxFractionDigits(2)))
	case models.FieldBoolean:
		if b, ok := value.(bool); ok {
			if b {
				return m.trueLabel
			}
			return m.falseLabel
		}
		return fmt.Sprintf("%v", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// FormatRow formats every column of a row using previously inferred types.
// Columns without an inferred type are passed through as strings.
func (m *VariableManager) FormatRow(row map[string]interface{}, types map[string]models.FieldType) map[string]interface{} {
	formatted := make(map[string]interface{}, len(row))
	for key, value := range row {
		fieldType, ok := types[key]
		if !ok {
			fieldType = models.FieldString
		}
		formatted[key] = m.FormatValue(value, fieldType)
	}
	return formatted
}

// ApplyConditionals evaluates each rule against each row and adds the
// derived boolean field in place. A malformed condition is skipped; a
// comparison failure leaves the row untouched for that rule.
func (m *VariableManager) ApplyConditionals(ctx context.Context, rules []models.ConditionalRule, rows []map[string]interface{}) {
	for _, row := range rows {
		m.ApplyConditionalsToRow(ctx, rules, row)
	}
}

// ApplyConditionalsToRow is the single-row variant of ApplyConditionals.
func (m *VariableManager) ApplyConditionalsToRow(ctx context.Context, rules []models.ConditionalRule, row map[string]interface{}) {
	for _, rule := range rules {
		tokens := strings.Fields(rule.Condition)
		if len(tokens) != 3 {
			continue
		}

		result, err := evaluateCondition(row, tokens[0], tokens[1], tokens[2])
		if err != nil {
			logger.Warn(ctx, "conditional variable evaluation failed",
				"variable", rule.Name, "condition", rule.Condition, "error", err)
			continue
		}
		row[rule.Name] = result
	}
}

func evaluateCondition(row map[string]interface{}, field, operator, rawValue string) (bool, error) {
	fieldValue, exists := row[field]
	if !exists {
		return false, fmt.Errorf("field %q not present in row", field)
	}

	if target, err := strconv.ParseFloat(rawValue, 64); err == nil {
		actual, ok := toFloat(fieldValue)
		if !ok {
			return false, fmt.Errorf("field %q is not numeric", field)
		}
		return compareFloats(actual, target, operator)
	}

	target := strings.Trim(rawValue, `"'`)
	actual := fmt.Sprintf("%v", fieldValue)
	return compareStrings(actual, target, operator)
}

func compareFloats(a, b float64, operator string) (bool, error) {
	switch operator {
	case ">":
		return a > b, nil
	case "<":
		return a < b, nil
	case ">=":
		return a >= b, nil
	case "<=":
		return a <= b, nil
	case "==", "===":
		return a == b, nil
	case "!=", "!==":
		return a != b, nil
	default:
		return false, fmt.Errorf("unsupported operator %q", operator)
	}
}

func compareStrings(a, b string, operator string) (bool, error) {
	switch operator {
	case "==", "===":
		return a == b, nil
	case "!=", "!==":
		return a != b, nil
	case ">":
		return a > b, nil
	case "<":
		return a < b, nil
	case ">=":
		return a >= b, nil
	case "<=":
		return a <= b, nil
	default:
		return false, fmt.Errorf("unsupported operator %q", operator)
	}
}

func hasCurrencyKeyword(key string) bool {
	lower := strings.ToLower(key)
	for _, keyword := range currencyKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
