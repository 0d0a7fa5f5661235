package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"customerserver/customers"
)

// ErrUnsupportedFormat формат файла не поддерживается
var ErrUnsupportedFormat = errors.New("unsupported orders file format")

// Options параметры разбора выгрузки заказов
type Options struct {
	// Encoding кодировка CSV: "" или "utf-8", "windows-1252", "iso-8859-1", "windows-1251"
	Encoding string
	// Comma разделитель полей CSV, по умолчанию ','
	Comma rune
	// Sheet лист XLSX, по умолчанию первый
	Sheet string
}

// ImportResult результат разбора выгрузки
type ImportResult struct {
	Orders    []customers.OrderRecord `json:"orders"`
	Total     int                     `json:"total"`
	Imported  int                     `json:"imported"`
	Errors    []string                `json:"errors"`
	Started   time.Time               `json:"started"`
	Completed time.Time               `json:"completed"`
	Duration  time.Duration           `json:"duration"`
}

// column поле заказа, которое ищется в заголовке
type column int

const (
	colOrderID column = iota
	colCreatedAt
	colTotal
	colName
	colEmail
	colPhone
	colAddress
	columnCount
)

// headerAliases варианты названий колонок в выгрузках магазинов
var headerAliases = map[string]column{
	"order_id":         colOrderID,
	"orderid":          colOrderID,
	"id":               colOrderID,
	"order":            colOrderID,
	"order number":     colOrderID,
	"numero":           colOrderID,
	"created_at":       colCreatedAt,
	"createdat":        colCreatedAt,
	"date":             colCreatedAt,
	"order_date":       colCreatedAt,
	"total_amount":     colTotal,
	"totalamount":      colTotal,
	"total":            colTotal,
	"amount":           colTotal,
	"montant":          colTotal,
	"full_name":        colName,
	"fullname":         colName,
	"name":             colName,
	"customer_name":    colName,
	"customer":         colName,
	"client":           colName,
	"nom":              colName,
	"email":            colEmail,
	"e-mail":           colEmail,
	"mail":             colEmail,
	"phone":            colPhone,
	"telephone":        colPhone,
	"téléphone":        colPhone,
	"tel":              colPhone,
	"mobile":           colPhone,
	"address":          colAddress,
	"adresse":          colAddress,
	"delivery_address": colAddress,
}

// timestampLayouts форматы дат, встречающиеся в выгрузках
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.000Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
	"02.01.2006 15:04",
	"02.01.2006",
}

// columnIndices позиции найденных колонок, -1 если колонки нет
type columnIndices [columnCount]int

// findColumnIndices определяет колонки по заголовку
func findColumnIndices(headers []string) columnIndices {
	var idx columnIndices
	for i := range idx {
		idx[i] = -1
	}

	for i, header := range headers {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		col, ok := headerAliases[key]
		if !ok {
			col, ok = headerAliases[strings.ReplaceAll(key, "_", " ")]
		}
		if ok && idx[col] == -1 {
			idx[col] = i
		}
	}
	return idx
}

// decoderFor возвращает декодер кодировки выгрузки
func decoderFor(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
}

// ParseOrdersCSV разбирает CSV-выгрузку заказов.
// Ошибочные строки пропускаются и попадают в ImportResult.Errors.
func ParseOrdersCSV(r io.Reader, opts Options) (*ImportResult, error) {
	decoder, err := decoderFor(opts.Encoding)
	if err != nil {
		return nil, err
	}
	if decoder != nil {
		r = transform.NewReader(r, decoder)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	return parseRows(rows)
}

// ParseOrdersXLSX разбирает выгрузку заказов в формате Excel
func ParseOrdersXLSX(filePath, sheet string) (*ImportResult, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	return parseRows(rows)
}

// ParseOrdersJSON разбирает массив заказов в формате JSON
func ParseOrdersJSON(r io.Reader) (*ImportResult, error) {
	started := time.Now()

	var orders []customers.OrderRecord
	if err := json.NewDecoder(r).Decode(&orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders JSON: %w", err)
	}

	completed := time.Now()
	return &ImportResult{
		Orders:    orders,
		Total:     len(orders),
		Imported:  len(orders),
		Errors:    []string{},
		Started:   started,
		Completed: completed,
		Duration:  completed.Sub(started),
	}, nil
}

// ParseOrdersFile выбирает разбор по расширению файла (.csv, .xlsx, .json)
func ParseOrdersFile(filePath string, opts Options) (*ImportResult, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx", ".xlsm":
		return ParseOrdersXLSX(filePath, opts.Sheet)
	case ".csv", ".txt":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return ParseOrdersCSV(bytes.NewReader(data), opts)
	case ".json":
		f, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		return ParseOrdersJSON(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filePath))
	}
}

// parseRows разбирает строки таблицы; первая строка - заголовок
func parseRows(rows [][]string) (*ImportResult, error) {
	result := &ImportResult{
		Orders:  make([]customers.OrderRecord, 0, len(rows)),
		Errors:  make([]string, 0),
		Started: time.Now(),
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("file is empty, expected a header row")
	}

	idx := findColumnIndices(rows[0])
	if idx[colOrderID] == -1 {
		return nil, fmt.Errorf("required column 'order_id' not found in headers")
	}

	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		if isEmptyRow(row) {
			continue
		}
		result.Total++

		order, err := parseOrderRow(row, idx)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowIdx+1, err))
			continue
		}
		result.Orders = append(result.Orders, order)
		result.Imported++
	}

	result.Completed = time.Now()
	result.Duration = result.Completed.Sub(result.Started)

	log.Printf("Orders parsed: %d/%d rows imported, %d errors",
		result.Imported, result.Total, len(result.Errors))

	return result, nil
}

// parseOrderRow собирает заказ из строки таблицы
func parseOrderRow(row []string, idx columnIndices) (customers.OrderRecord, error) {
	cell := func(c column) string {
		i := idx[c]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	order := customers.OrderRecord{OrderID: cell(colOrderID)}

	createdAt, err := ParseTimestamp(cell(colCreatedAt))
	if err != nil {
		return order, err
	}
	order.CreatedAt = createdAt

	amount, err := ParseAmount(cell(colTotal))
	if err != nil {
		return order, err
	}
	order.TotalAmount = amount

	info := customers.CustomerInfo{
		FullName: cell(colName),
		Email:    cell(colEmail),
		Phone:    cell(colPhone),
		Address:  cell(colAddress),
	}
	if info != (customers.CustomerInfo{}) {
		order.CustomerInfo = &info
	}

	return order, nil
}

// ParseTimestamp переводит дату заказа в epoch ms.
// Число трактуется как epoch ms, а если оно слишком мало для миллисекунд, как epoch s.
// Пустое значение дает 0.
func ParseTimestamp(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 0 && n < 100_000_000_000 {
			return n * 1000, nil
		}
		return n, nil
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UnixMilli(), nil
		}
	}

	return 0, fmt.Errorf("invalid date %q", raw)
}

// ParseAmount разбирает сумму заказа: "1 500,50", "1,500", "1500.5 FCFA", "-20".
// Запятая перед группами ровно из трех цифр без точки в записи считается разделителем тысяч.
// Пустое значение дает 0.
func ParseAmount(raw string) (float64, error) {
	thousands := commaIsThousandsSeparator(raw)

	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		case r == ',' && !thousands:
			b.WriteRune('.')
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		if strings.TrimSpace(raw) == "" {
			return 0, nil
		}
		return 0, fmt.Errorf("invalid amount %q", raw)
	}

	// "1.500.50" после замены запятой: остается только последняя точка
	if strings.Count(cleaned, ".") > 1 {
		last := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:last], ".", "") + cleaned[last:]
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

// commaIsThousandsSeparator "1,500" и "1,500,000": каждая запятая отделяет ровно три цифры
func commaIsThousandsSeparator(raw string) bool {
	if strings.Contains(raw, ".") || !strings.Contains(raw, ",") {
		return false
	}

	var digits strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == ',' {
			digits.WriteRune(r)
		}
	}

	groups := strings.Split(digits.String(), ",")
	head := strings.TrimLeft(groups[0], "0")
	if head == "" || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// isEmptyRow проверяет, что в строке нет значений
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
