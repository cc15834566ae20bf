package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillip-england/maintreq/internal/requests"
)

func TestRenderReport_HeaderAndRows(t *testing.T) {
	first := sampleRequest()
	second := sampleRequest()
	second.ID = 4
	second.Value = nil
	desc := "Coletor de dados"
	second.EquipmentDescription = &desc

	data, err := RenderReport([]requests.Request{first, second}, saoPaulo)
	require.NoError(t, err)
	f := openBook(t, data)

	assert.Equal(t, []string{ReportSheet}, f.GetSheetList())
	rows, err := f.GetRows(ReportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ReportColumns, rows[0])

	assert.Equal(t, "9", cellValue(t, f, ReportSheet, "A2"))
	assert.Equal(t, "2024-06-03 09:05:00", cellValue(t, f, ReportSheet, "B2"))
	assert.Equal(t, "Ana Souza", cellValue(t, f, ReportSheet, "C2"))
	assert.Equal(t, "150.5", cellValue(t, f, ReportSheet, "K2"))
	assert.Empty(t, cellValue(t, f, ReportSheet, "F2"))
	assert.Equal(t, requests.StatusAwaitingShipment, cellValue(t, f, ReportSheet, "N2"))

	assert.Equal(t, "Coletor de dados", cellValue(t, f, ReportSheet, "F3"))
	assert.Empty(t, cellValue(t, f, ReportSheet, "K3"))
}

func TestRenderReport_ColumnWidths(t *testing.T) {
	data, err := RenderReport([]requests.Request{sampleRequest()}, saoPaulo)
	require.NoError(t, err)
	f := openBook(t, data)

	// id: header "id" (2) vs "9" (1).
	w, err := f.GetColWidth(ReportSheet, "A")
	require.NoError(t, err)
	assert.Equal(t, 4.0, w)

	// motivo_envio: the reason is longer than the header.
	w, err = f.GetColWidth(ReportSheet, "L")
	require.NoError(t, err)
	assert.Equal(t, float64(len([]rune(sampleRequest().Reason))+2), w)

	// data_solicitacao: "2024-06-03 09:05:00" is 19 runes.
	w, err = f.GetColWidth(ReportSheet, "B")
	require.NoError(t, err)
	assert.Equal(t, 21.0, w)
}

func TestRenderReport_Empty(t *testing.T) {
	data, err := RenderReport(nil, saoPaulo)
	require.NoError(t, err)
	f := openBook(t, data)

	rows, err := f.GetRows(ReportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(ReportColumns))
}
