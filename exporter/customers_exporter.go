// Package exporter выгружает рассчитанных клиентов в CSV, JSON и Excel.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"customerserver/customers"
)

// ExportFormat формат экспорта
type ExportFormat string

const (
	FormatJSON  ExportFormat = "json"
	FormatCSV   ExportFormat = "csv"
	FormatExcel ExportFormat = "xlsx"
)

// ErrUnknownFormat формат экспорта не поддерживается
var ErrUnknownFormat = errors.New("unknown export format")

// sheetName лист Excel с клиентами
const sheetName = "Customers"

// listSeparator разделитель значений множеств в одной ячейке
const listSeparator = "; "

// headers колонки CSV и Excel
var headers = []string{
	"ID", "Display Name", "Email", "Phone", "Canonical Phone",
	"First Order", "Last Order", "Total Orders", "Total Spent",
	"Addresses", "Order IDs", "Name Variations", "Possible Duplicates", "Warnings",
}

// ParseFormat разбирает формат из параметра запроса или флага
func ParseFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "xlsx", "excel":
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// ContentType MIME-тип формата
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Extension расширение файла формата
func (f ExportFormat) Extension() string {
	return "." + string(f)
}

// Write выгружает клиентов в w в формате format
func Write(w io.Writer, format ExportFormat, list []*customers.CustomerAggregate) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, list)
	case FormatJSON:
		return WriteJSON(w, list)
	case FormatExcel:
		return WriteExcel(w, list)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ExportToFile выгружает клиентов в файл
func ExportToFile(filename string, format ExportFormat, list []*customers.CustomerAggregate) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := Write(file, format, list); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteJSON выгружает клиентов в JSON с датой выгрузки
func WriteJSON(w io.Writer, list []*customers.CustomerAggregate) error {
	if list == nil {
		list = []*customers.CustomerAggregate{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	result := map[string]interface{}{
		"exported_at": time.Now().UTC().Format(time.RFC3339),
		"total":       len(list),
		"customers":   list,
	}

	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteCSV выгружает клиентов в CSV
func WriteCSV(w io.Writer, list []*customers.CustomerAggregate) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, c := range list {
		if err := writer.Write(record(c)); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// WriteExcel выгружает клиентов в книгу Excel
func WriteExcel(w io.Writer, list []*customers.CustomerAggregate) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, c := range list {
		row := []interface{}{
			c.ID,
			c.DisplayName,
			c.Email,
			c.Phone,
			c.CanonicalPhone,
			formatTimestamp(c.FirstOrderAt),
			formatTimestamp(c.LastOrderAt),
			c.TotalOrders,
			c.TotalSpent,
			strings.Join(c.Addresses, listSeparator),
			strings.Join(c.OrderIDs, listSeparator),
			strings.Join(c.NameVariations, listSeparator),
			strings.Join(c.PossibleDuplicateIDs, listSeparator),
			strings.Join(c.Warnings, listSeparator),
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowIdx+2, err)
		}
	}

	for i := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 18)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

// record строка CSV для клиента
func record(c *customers.CustomerAggregate) []string {
	return []string{
		c.ID,
		csvText(c.DisplayName),
		csvText(c.Email),
		csvText(c.Phone),
		c.CanonicalPhone,
		formatTimestamp(c.FirstOrderAt),
		formatTimestamp(c.LastOrderAt),
		strconv.Itoa(c.TotalOrders),
		strconv.FormatFloat(c.TotalSpent, 'f', 2, 64),
		csvText(strings.Join(c.Addresses, listSeparator)),
		csvText(strings.Join(c.OrderIDs, listSeparator)),
		csvText(strings.Join(c.NameVariations, listSeparator)),
		strings.Join(c.PossibleDuplicateIDs, listSeparator),
		strings.Join(c.Warnings, listSeparator),
	}
}

// csvText экранирует введенный продавцом текст, который табличный редактор принял бы за формулу
func csvText(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// formatTimestamp epoch ms в RFC3339 (UTC); 0 дает пустую строку
func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
