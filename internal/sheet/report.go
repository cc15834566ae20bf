package sheet

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/phillip-england/maintreq/internal/requests"
)

const (
	ReportSheet      = "RelatorioSolicitacoes"
	reportTimeLayout = "2006-01-02 15:04:05"
)

// ReportColumns is the header row of the history report, in storage column
// order.
var ReportColumns = []string{
	"id",
	"data_solicitacao",
	"solicitante",
	"setor_cargo",
	"modelo_equipamento",
	"descricao_equipamento",
	"codigo_equipamento",
	"sistema_alocado",
	"quantidade",
	"centro_custo",
	"valor",
	"motivo_envio",
	"url_imagem",
	"status",
}

// RenderReport writes one row per request under ReportColumns. Timestamps are
// shown as local wall-clock time without an offset. Each column is as wide as
// its longest rendered value plus two.
func RenderReport(rows []requests.Request, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		return nil, err
	}
	layout := "yyyy-mm-dd hh:mm:ss"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &layout})
	if err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: thinBorder(),
	})
	if err != nil {
		return nil, err
	}

	widths := make([]int, len(ReportColumns))
	for i, name := range ReportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ReportSheet, cell, name); err != nil {
			return nil, err
		}
		widths[i] = utf8.RuneCountInString(name)
	}
	last, _ := excelize.CoordinatesToCellName(len(ReportColumns), 1)
	if err := f.SetCellStyle(ReportSheet, "A1", last, headerStyle); err != nil {
		return nil, err
	}

	for r, req := range rows {
		rowNum := r + 2
		for c, value := range reportValues(req, loc) {
			if n := utf8.RuneCountInString(value.text); n > widths[c] {
				widths[c] = n
			}
			if value.raw == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, rowNum)
			if err := f.SetCellValue(ReportSheet, cell, value.raw); err != nil {
				return nil, fmt.Errorf("report row %d: %w", rowNum, err)
			}
			if _, ok := value.raw.(time.Time); ok {
				if err := f.SetCellStyle(ReportSheet, cell, cell, dateStyle); err != nil {
					return nil, err
				}
			}
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(ReportSheet, col, col, float64(w+2)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return buf.Bytes(), nil
}

type reportValue struct {
	raw  any
	text string
}

func reportValues(req requests.Request, loc *time.Location) []reportValue {
	local := req.SubmittedAt.In(loc)
	// excelize serializes the absolute instant, so pin the wall clock to UTC.
	wall := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), local.Second(), 0, time.UTC)

	value := reportValue{}
	if req.Value != nil {
		value = reportValue{raw: *req.Value, text: strconv.FormatFloat(*req.Value, 'f', -1, 64)}
	}
	return []reportValue{
		{raw: req.ID, text: strconv.FormatInt(req.ID, 10)},
		{raw: wall, text: local.Format(reportTimeLayout)},
		textValue(req.RequesterName),
		textValue(req.RequesterSectorRole),
		textValue(req.EquipmentModel),
		optionalValue(req.EquipmentDescription),
		textValue(req.EquipmentCode),
		textValue(req.AllocatedSystem),
		{raw: req.Quantity, text: strconv.FormatInt(req.Quantity, 10)},
		optionalValue(req.CostCenter),
		value,
		textValue(req.Reason),
		optionalValue(req.PhotoURL),
		textValue(req.Status),
	}
}

func textValue(s string) reportValue { return reportValue{raw: s, text: s} }

func optionalValue(s *string) reportValue {
	if s == nil {
		return reportValue{}
	}
	return textValue(*s)
}
