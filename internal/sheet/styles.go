package sheet

import "github.com/xuri/excelize/v2"

const currencyFormat = "R$ #,##0.00"

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

type formStyles struct {
	header int
	code   int
	label  int
	data   int
	money  int
	center int
}

func newFormStyles(f *excelize.File) (formStyles, error) {
	var (
		s   formStyles
		err error
	)
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thinBorder(),
	}); err != nil {
		return s, err
	}
	if s.code, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder(),
	}); err != nil {
		return s, err
	}
	if s.label, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	}); err != nil {
		return s, err
	}
	if s.data, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
		Border:    thinBorder(),
	}); err != nil {
		return s, err
	}
	format := currencyFormat
	if s.money, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 11},
		Alignment:    &excelize.Alignment{Horizontal: "left", Vertical: "center"},
		Border:       thinBorder(),
		CustomNumFmt: &format,
	}); err != nil {
		return s, err
	}
	if s.center, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return s, err
	}
	return s, nil
}
