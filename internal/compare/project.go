package compare

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"uni_directory/internal/domain"
)

type ValueKind string

const (
	Text       ValueKind = "text"
	Rating     ValueKind = "rating"
	Currency   ValueKind = "currency"
	Percentage ValueKind = "percentage"
	Boolean    ValueKind = "boolean"
	Number     ValueKind = "number"
)

// NA renders a missing value.
const NA = "N/A"

type Field struct {
	Key   string    `json:"key"` // dot path into the record
	Label string    `json:"label"`
	Kind  ValueKind `json:"type"`
}

type Column struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"type"`
}

type Row struct {
	Key    string    `json:"key"`
	Label  string    `json:"label"`
	Kind   ValueKind `json:"type"`
	Values []string  `json:"values"` // one per column
}

type Table struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Project lays items out one column each and one row per schema field.
func Project(items []Item, schema []Field) Table {
	t := Table{
		Columns: make([]Column, 0, len(items)),
		Rows:    make([]Row, 0, len(schema)),
	}
	for _, it := range items {
		t.Columns = append(t.Columns, Column{ID: it.ID, Name: it.Name, Kind: it.Kind})
	}
	for _, f := range schema {
		row := Row{Key: f.Key, Label: f.Label, Kind: f.Kind, Values: make([]string, 0, len(items))}
		for _, it := range items {
			v, _ := Lookup(it.Record, f.Key)
			row.Values = append(row.Values, FormatValue(v, f.Kind))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Lookup resolves a dot path through nested maps.
func Lookup(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		obj, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		v, ok := obj[part]
		if !ok || v == nil {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case domain.Record:
		return t, true
	}
	return nil, false
}

var egp = message.NewPrinter(language.English)

// FormatValue renders v for display; nil or a value of the wrong shape is NA.
func FormatValue(v any, kind ValueKind) string {
	if v == nil {
		return NA
	}
	switch kind {
	case Rating:
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'f', 1, 64)
		}
		return NA
	case Currency:
		if f, ok := toFloat(v); ok {
			return egp.Sprintf("EGP %d", int64(math.Round(f)))
		}
		return NA
	case Percentage:
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64) + "%"
		}
		return NA
	case Boolean:
		if b, ok := v.(bool); ok {
			if b {
				return "Yes"
			}
			return "No"
		}
		return NA
	case Number:
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return NA
	}
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return NA
		}
		return t
	case bool:
		return FormatValue(t, Boolean)
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return NA
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
