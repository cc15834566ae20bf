// Package sheet renders maintenance requests as .xlsx workbooks: the printable
// per-request form and the tabular history report.
package sheet

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/xuri/excelize/v2"

	"github.com/phillip-england/maintreq/internal/requests"
)

const (
	FormSheet  = "Solicitacao"
	FormTitle  = "FORMULÁRIO DE ENVIO PARA ASSISTÊNCIA TÉCNICA"
	FormCode   = "F00000"
	FormVer    = "Ver:00"
	Signature  = "Assinatura do Solicitante"
	SignRule   = "_________________________________________"
	logoWidth  = 159
	logoHeight = 57

	firstFieldRow = 3
)

// FormOptions carries optional decoration for the form.
type FormOptions struct {
	// Logo is the raw image placed in A1:A2. When empty or unreadable the
	// cell holds the text "Logo".
	Logo []byte
}

// RenderForm builds the single-sheet form for the given label/value pairs, in
// order. The "Valor" row is written as a number in BRL currency format.
func RenderForm(fields []requests.FormField, opts FormOptions) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", FormSheet); err != nil {
		return nil, err
	}
	st, err := newFormStyles(f)
	if err != nil {
		return nil, fmt.Errorf("form styles: %w", err)
	}

	if err := writeFormHeader(f, st, opts); err != nil {
		return nil, err
	}

	row := firstFieldRow
	for _, field := range fields {
		if err := writeFormField(f, st, row, field); err != nil {
			return nil, err
		}
		row++
	}

	for _, w := range []struct {
		from, to string
		width    float64
	}{{"A", "A", 30}, {"B", "C", 25}, {"D", "D", 10}} {
		if err := f.SetColWidth(FormSheet, w.from, w.to, w.width); err != nil {
			return nil, err
		}
	}

	row += 2
	if err := centeredLine(f, st, row, SignRule); err != nil {
		return nil, err
	}
	if err := centeredLine(f, st, row+1, Signature); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write form: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFormHeader(f *excelize.File, st formStyles, opts FormOptions) error {
	if err := f.MergeCell(FormSheet, "A1", "A2"); err != nil {
		return err
	}
	if err := f.SetCellStyle(FormSheet, "A1", "A2", st.header); err != nil {
		return err
	}
	if !placeLogo(f, opts.Logo) {
		if err := f.SetCellValue(FormSheet, "A1", "Logo"); err != nil {
			return err
		}
	}

	if err := f.MergeCell(FormSheet, "B1", "C2"); err != nil {
		return err
	}
	if err := f.SetCellValue(FormSheet, "B1", FormTitle); err != nil {
		return err
	}
	if err := f.SetCellStyle(FormSheet, "B1", "C2", st.header); err != nil {
		return err
	}

	if err := f.SetCellValue(FormSheet, "D1", FormCode); err != nil {
		return err
	}
	if err := f.SetCellValue(FormSheet, "D2", FormVer); err != nil {
		return err
	}
	if err := f.SetCellStyle(FormSheet, "D1", "D2", st.code); err != nil {
		return err
	}
	for _, r := range []int{1, 2} {
		if err := f.SetRowHeight(FormSheet, r, 35); err != nil {
			return err
		}
	}
	return nil
}

// placeLogo scales the logo to 159x57 pixels inside A1. It reports false when
// the image cannot be used.
func placeLogo(f *excelize.File, logo []byte) bool {
	if len(logo) == 0 {
		return false
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(logo))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return false
	}
	ext := map[string]string{"png": ".png", "jpeg": ".jpg", "gif": ".gif"}[format]
	if ext == "" {
		return false
	}
	err = f.AddPictureFromBytes(FormSheet, "A1", &excelize.Picture{
		Extension: ext,
		File:      logo,
		Format: &excelize.GraphicOptions{
			ScaleX:      float64(logoWidth) / float64(cfg.Width),
			ScaleY:      float64(logoHeight) / float64(cfg.Height),
			OffsetX:     2,
			OffsetY:     2,
			Positioning: "oneCell",
		},
	})
	return err == nil
}

func writeFormField(f *excelize.File, st formStyles, row int, field requests.FormField) error {
	label, _ := excelize.CoordinatesToCellName(1, row)
	from, _ := excelize.CoordinatesToCellName(2, row)
	to, _ := excelize.CoordinatesToCellName(4, row)

	if err := f.SetCellValue(FormSheet, label, field.Label); err != nil {
		return err
	}
	if err := f.SetCellStyle(FormSheet, label, label, st.label); err != nil {
		return err
	}
	if err := f.MergeCell(FormSheet, from, to); err != nil {
		return err
	}

	style := st.data
	var value any = fmt.Sprint(field.Value)
	if field.Label == requests.LabelValue {
		style = st.money
		value = field.Value
	}
	if err := f.SetCellValue(FormSheet, from, value); err != nil {
		return err
	}
	if err := f.SetCellStyle(FormSheet, from, to, style); err != nil {
		return err
	}
	return f.SetRowHeight(FormSheet, row, 30)
}

func centeredLine(f *excelize.File, st formStyles, row int, text string) error {
	from, _ := excelize.CoordinatesToCellName(1, row)
	to, _ := excelize.CoordinatesToCellName(4, row)
	if err := f.MergeCell(FormSheet, from, to); err != nil {
		return err
	}
	if err := f.SetCellValue(FormSheet, from, text); err != nil {
		return err
	}
	return f.SetCellStyle(FormSheet, from, to, st.center)
}
