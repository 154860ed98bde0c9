// Package pricesheet reads supplier price sheets and upserts the listed
// purchases as ingredients, keyed by (name, source).
package pricesheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"platecost/models"
)

var (
	quantityPattern = regexp.MustCompile(`^\s*([-+]?\d*\.?\d+)\s*([A-Za-z]*)\s*$`)
	pricePattern    = regexp.MustCompile(`[^0-9.\-]+`)
	fieldSeparator  = regexp.MustCompile(`\s*[|;\t]\s*`)
	digitPattern    = regexp.MustCompile(`\d`)
)

// Row is one purchase read from a sheet. Line is 1-based in the source.
type Row struct {
	Line     int
	Name     string
	Source   string
	Quantity float64
	Unit     string
	Price    float64
	Category string
}

// Payload converts the row to an ingredient payload.
func (r Row) Payload() models.IngredientPayload {
	return models.IngredientPayload{
		Name:     r.Name,
		Source:   r.Source,
		Quantity: r.Quantity,
		Unit:     r.Unit,
		Price:    r.Price,
		Category: r.Category,
	}
}

// RowError reports a line that could not be read or stored.
type RowError struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

// Format names a supported sheet encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatText Format = "text"
)

// DetectFormat picks a format from the file name, falling back to sniffing
// the PDF magic bytes.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV
	case ".pdf":
		return FormatPDF
	case ".txt":
		return FormatText
	}
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return FormatPDF
	}
	return FormatCSV
}

// Parse reads a sheet of the given name. Malformed lines are returned as
// RowErrors; a non-nil error means the sheet itself could not be read.
func Parse(name string, data []byte) ([]Row, []RowError, error) {
	switch DetectFormat(name, data) {
	case FormatPDF:
		text, err := ExtractPDFText(data)
		if err != nil {
			return nil, nil, fmt.Errorf("read pdf: %w", err)
		}
		rows, rowErrs := ParseText(text)
		return rows, rowErrs, nil
	case FormatText:
		rows, rowErrs := ParseText(string(data))
		return rows, rowErrs, nil
	default:
		return ReadCSV(bytes.NewReader(data))
	}
}

// ReadCSV reads a sheet with a Name,Source,Quantity,Unit,Price,Category
// header. Header names are matched case-insensitively and columns may appear
// in any order; Source, Unit and Category are optional.
func ReadCSV(r io.Reader) ([]Row, []RowError, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.New("csv is empty")
	}

	columns := make(map[string]int, len(records[0]))
	for idx, key := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(key))] = idx
	}
	for _, required := range []string{"name", "quantity", "price"} {
		if _, found := columns[required]; !found {
			return nil, nil, fmt.Errorf("csv header is missing %q", required)
		}
	}

	field := func(record []string, key string) string {
		idx, found := columns[key]
		if !found || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var (
		rows    []Row
		rowErrs []RowError
	)
	for i, record := range records[1:] {
		line := i + 2
		if blankRecord(record) {
			continue
		}
		row, err := buildRow(line, field(record, "name"), field(record, "source"), field(record, "quantity"), field(record, "unit"), field(record, "price"), field(record, "category"))
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err.Error()})
			continue
		}
		rows = append(rows, row)
	}
	return rows, rowErrs, nil
}

// ParseText reads free-text lines of the form
//
//	name, source, quantity unit, price[, category]
//
// Fields may also be separated by |, ; or tabs, which allows commas inside
// prices. Lines without any digit (titles, headers) are skipped.
func ParseText(text string) ([]Row, []RowError) {
	var (
		rows    []Row
		rowErrs []RowError
	)
	for i, raw := range strings.Split(text, "\n") {
		line := i + 1
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || !digitPattern.MatchString(trimmed) {
			continue
		}

		var fields []string
		if fieldSeparator.MatchString(trimmed) {
			fields = fieldSeparator.Split(trimmed, -1)
		} else {
			fields = strings.Split(trimmed, ",")
		}
		for j := range fields {
			fields[j] = strings.TrimSpace(fields[j])
		}
		if len(fields) < 4 || len(fields) > 5 {
			rowErrs = append(rowErrs, RowError{Line: line, Err: fmt.Sprintf("expected 4 or 5 fields, got %d", len(fields))})
			continue
		}

		category := ""
		if len(fields) == 5 {
			category = fields[4]
		}
		row, err := buildRow(line, fields[0], fields[1], fields[2], "", fields[3], category)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err.Error()})
			continue
		}
		rows = append(rows, row)
	}
	return rows, rowErrs
}

// ExtractPDFText returns the plain text of every page.
func ExtractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

func buildRow(line int, name, source, quantity, unit, price, category string) (Row, error) {
	qty, qtyUnit, err := parseQuantity(quantity)
	if err != nil {
		return Row{}, err
	}
	if strings.TrimSpace(unit) == "" {
		unit = qtyUnit
	}
	amount, err := parsePrice(price)
	if err != nil {
		return Row{}, err
	}

	row := Row{
		Line:     line,
		Name:     strings.TrimSpace(name),
		Source:   strings.TrimSpace(source),
		Quantity: qty,
		Unit:     models.NormalizeUnit(unit),
		Price:    amount,
		Category: strings.TrimSpace(category),
	}
	if err := row.Payload().Validate(); err != nil {
		return Row{}, err
	}
	return row, nil
}

// parseQuantity accepts "500", "500g" or "1.5 kg".
func parseQuantity(value string) (float64, string, error) {
	match := quantityPattern.FindStringSubmatch(value)
	if match == nil {
		return 0, "", fmt.Errorf("invalid quantity %q", value)
	}
	parsed, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid quantity %q: %w", value, err)
	}
	return parsed, match[2], nil
}

// parsePrice strips currency symbols and thousands separators.
func parsePrice(value string) (float64, error) {
	cleaned := pricePattern.ReplaceAllString(value, "")
	if cleaned == "" {
		return 0, fmt.Errorf("invalid price %q", value)
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", value)
	}
	return parsed, nil
}

func blankRecord(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
