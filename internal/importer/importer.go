// Package importer restores maintenance requests from a previously exported
// history report (.xlsx or legacy .xls).
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/phillip-england/maintreq/internal/requests"
)

const maxXLSRows = 100000

var (
	ErrEmptyWorksheet = errors.New("worksheet is empty")
	ErrNoWorksheet    = errors.New("no worksheet found")
)

// RowError ties a parse failure to its 1-based spreadsheet row.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

// Error collects every rejected row so a file is imported all-or-nothing.
type Error struct {
	Rows []RowError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		parts = append(parts, r.Error())
	}
	return "import rejected: " + strings.Join(parts, "; ")
}

// ReadRows returns the cells of the first worksheet as strings. The format
// is chosen by file extension; anything other than .xls is read as .xlsx.
func ReadRows(reader io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		return readXLS(data)
	default:
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()

		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, ErrNoWorksheet
		}
		rows, err := file.GetRows(sheetName)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, ErrEmptyWorksheet
		}
		return rows, nil
	}
}

// readXLS recovers from parser panics, which extrame/xls raises on some
// malformed files.
func readXLS(data []byte) (rows [][]string, err error) {
	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, fmt.Errorf("unreadable xls file: %v", p)
		}
	}()
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook.NumSheets() == 0 {
		return nil, ErrNoWorksheet
	}
	rows = workbook.ReadAllCells(maxXLSRows)
	if len(rows) == 0 {
		return nil, ErrEmptyWorksheet
	}
	return rows, nil
}

var requiredColumns = []string{
	"data_solicitacao",
	"solicitante",
	"setor_cargo",
	"modelo_equipamento",
	"codigo_equipamento",
	"sistema_alocado",
	"quantidade",
	"motivo_envio",
}

// Parse maps report rows back into requests. The first row must be the
// report header; ids are dropped so the store assigns new ones. Timestamps
// without an offset are read as wall-clock time in loc.
func Parse(rows [][]string, loc *time.Location) ([]requests.Request, error) {
	if loc == nil {
		loc = time.UTC
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorksheet
	}

	index := map[string]int{}
	for i, h := range rows[0] {
		index[normalizeHeader(h)] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	col := func(row []string, name string) string {
		idx, ok := index[name]
		if !ok {
			return ""
		}
		return cellValue(row, idx)
	}

	out := []requests.Request{}
	var failed []RowError
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rowNum := i + 2
		req, err := parseRow(row, col, loc)
		if err != nil {
			failed = append(failed, RowError{Row: rowNum, Err: err})
			continue
		}
		out = append(out, req)
	}
	if len(failed) > 0 {
		return nil, &Error{Rows: failed}
	}
	return out, nil
}

func parseRow(row []string, col func([]string, string) string, loc *time.Location) (requests.Request, error) {
	submittedAt, err := parseTimestamp(col(row, "data_solicitacao"), loc)
	if err != nil {
		return requests.Request{}, err
	}
	quantity, err := requests.ParseQuantity(col(row, "quantidade"))
	if err != nil {
		return requests.Request{}, err
	}
	value, err := requests.ParseValue(col(row, "valor"))
	if err != nil {
		return requests.Request{}, err
	}
	status := col(row, "status")
	if status == "" {
		status = requests.StatusAwaitingShipment
	}

	req := requests.Request{
		SubmittedAt:          submittedAt,
		RequesterName:        col(row, "solicitante"),
		RequesterSectorRole:  col(row, "setor_cargo"),
		EquipmentModel:       col(row, "modelo_equipamento"),
		EquipmentDescription: optional(col(row, "descricao_equipamento")),
		EquipmentCode:        col(row, "codigo_equipamento"),
		AllocatedSystem:      col(row, "sistema_alocado"),
		Quantity:             quantity,
		CostCenter:           optional(col(row, "centro_custo")),
		Value:                value,
		Reason:               col(row, "motivo_envio"),
		PhotoURL:             optional(col(row, "url_imagem")),
		Status:               status,
	}
	if err := req.Valid(); err != nil {
		return requests.Request{}, err
	}
	return req, nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006",
}

func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("data_solicitacao is empty")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}

	// Excel serial date when the cell kept its raw number.
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 {
		if parsed, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return time.Date(parsed.Year(), parsed.Month(), parsed.Day(),
				parsed.Hour(), parsed.Minute(), parsed.Second(), 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized data_solicitacao %q", value)
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
