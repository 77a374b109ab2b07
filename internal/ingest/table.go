package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/joshharrison/siteplan/internal/model"
)

// Supported file extensions.
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
	ExtJSON = ".json"
	ExtYAML = ".yaml"
	ExtYML  = ".yml"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMissingColumns    = errors.New("missing required columns")
)

// table is a header-normalised view of a tabular input. Row numbers in
// errors are 1-based data rows.
type table struct {
	columns map[string]bool
	rows    []map[string]string
}

func (t *table) require(required ...string) error {
	var missing []string
	for _, c := range required {
		if !t.columns[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
}

// normalizeHeader trims, lowercases and snake-cases a column name.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

func readTable(r io.Reader, ext string) (*table, error) {
	switch strings.ToLower(ext) {
	case ExtCSV:
		return readCSV(r)
	case ExtXLSX:
		return readXLSX(r)
	case ExtJSON:
		return readJSON(r)
	case ExtYAML, ExtYML:
		return readYAML(r)
	}
	return nil, fmt.Errorf("%w %q (supported: %s, %s, %s, %s)", ErrUnsupportedFormat, ext, ExtCSV, ExtXLSX, ExtJSON, ExtYAML)
}

// fromGrid builds a table from a header row followed by data rows. Blank
// header cells drop their column and fully blank rows are skipped.
func fromGrid(grid [][]string) *table {
	t := &table{columns: make(map[string]bool)}
	if len(grid) == 0 {
		return t
	}
	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = normalizeHeader(h)
		if headers[i] != "" {
			t.columns[headers[i]] = true
		}
	}
	for _, rec := range grid[1:] {
		row := make(map[string]string, len(headers))
		blank := true
		for i, key := range headers {
			if key == "" || i >= len(rec) {
				continue
			}
			v := strings.TrimSpace(rec[i])
			row[key] = v
			if v != "" {
				blank = false
			}
		}
		if !blank {
			t.rows = append(t.rows, row)
		}
	}
	return t
}

func readCSV(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	grid, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return fromGrid(grid), nil
}

func readXLSX(r io.Reader) (*table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	// Raw values keep dates as serial numbers instead of locale strings.
	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return fromGrid(grid), nil
}

// readJSON accepts an array of objects. Array-valued cells are joined with
// commas so dependency lists survive.
func readJSON(r io.Reader) (*table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse json: invalid document")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("parse json: expected an array of objects")
	}

	t := &table{columns: make(map[string]bool)}
	var rowErr error
	doc.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			rowErr = fmt.Errorf("parse json: row %d is not an object", len(t.rows)+1)
			return false
		}
		row := make(map[string]string)
		item.ForEach(func(k, v gjson.Result) bool {
			row[normalizeHeader(k.String())] = jsonCell(v)
			return true
		})
		if len(t.rows) == 0 {
			for k := range row {
				t.columns[k] = true
			}
		}
		t.rows = append(t.rows, row)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return t, nil
}

func jsonCell(v gjson.Result) string {
	switch {
	case v.Type == gjson.Null:
		return ""
	case v.IsArray():
		var parts []string
		for _, el := range v.Array() {
			parts = append(parts, strings.TrimSpace(el.String()))
		}
		return strings.Join(parts, ",")
	}
	return strings.TrimSpace(v.String())
}

// readYAML accepts a sequence of mappings, the format of the older task
// definition files.
func readYAML(r io.Reader) (*table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read yaml: %w", err)
	}
	var items []map[string]any
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&items); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	t := &table{columns: make(map[string]bool)}
	for i, item := range items {
		row := make(map[string]string, len(item))
		for k, v := range item {
			row[normalizeHeader(k)] = yamlCell(v)
		}
		if i == 0 {
			for k := range row {
				t.columns[k] = true
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func yamlCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case time.Time:
		return model.FormatDate(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(x))
		for _, el := range x {
			parts = append(parts, yamlCell(el))
		}
		return strings.Join(parts, ",")
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
