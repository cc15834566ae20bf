package requests

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var saoPaulo = time.FixedZone("BRT", -3*60*60)

func validInput() Input {
	return Input{
		EquipmentModel:  "Leitor X200",
		EquipmentCode:   "SN-001",
		AllocatedSystem: "Caixa 3",
		Quantity:        "2",
		Reason:          "Não liga",
	}
}

func TestBuild_Valid(t *testing.T) {
	at := time.Date(2024, 5, 10, 14, 0, 0, 0, saoPaulo)
	req, err := Build(validInput(), Requester{Name: "Ana Souza", SectorRole: "TI"}, at)
	require.NoError(t, err)

	assert.Equal(t, "Leitor X200", req.EquipmentModel)
	assert.Equal(t, int64(2), req.Quantity)
	assert.Equal(t, "Ana Souza", req.RequesterName)
	assert.Equal(t, StatusAwaitingShipment, req.Status)
	assert.Nil(t, req.EquipmentDescription)
	assert.Nil(t, req.CostCenter)
	assert.Nil(t, req.Value)
	assert.True(t, req.SubmittedAt.Equal(at))
	assert.NoError(t, req.Valid())
}

func TestBuild_MissingRequiredFields(t *testing.T) {
	in := validInput()
	in.EquipmentModel = "  "
	in.Reason = ""
	in.Quantity = "0"

	_, err := Build(in, Requester{Name: "Ana", SectorRole: "TI"}, time.Now())
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "modelo")
	assert.Contains(t, vErr.Fields, "motivo")
	assert.Contains(t, vErr.Fields, "quantidade")
	assert.NotContains(t, vErr.Fields, "codigo")
	assert.Equal(t, "invalid request: modelo, quantidade, motivo", err.Error())
}

func TestBuild_RequiresIdentity(t *testing.T) {
	_, err := Build(validInput(), Requester{Name: "Ana"}, time.Now())
	require.Error(t, err)
	var vErr *ValidationError
	assert.False(t, errors.As(err, &vErr))
}

func TestBuild_ValueParsing(t *testing.T) {
	tests := []struct {
		raw     string
		want    *float64
		wantErr bool
	}{
		{raw: "", want: nil},
		{raw: "0", want: nil},
		{raw: "1234.5", want: ptr(1234.5)},
		{raw: "1.234,50", want: ptr(1234.5)},
		{raw: "R$ 10,999", want: ptr(11)},
		{raw: "1.234", want: ptr(1234)},
		{raw: "12.500", want: ptr(12500)},
		{raw: "R$ 1.234.567", want: ptr(1234567)},
		{raw: "1.5", want: ptr(1.5)},
		{raw: "1.234,00", want: ptr(1234)},
		{raw: "-1", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "NaN", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			in := validInput()
			in.Value = tc.raw
			req, err := Build(in, Requester{Name: "Ana", SectorRole: "TI"}, time.Now())
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tc.want == nil {
				assert.Nil(t, req.Value)
				return
			}
			require.NotNil(t, req.Value)
			assert.InDelta(t, *tc.want, *req.Value, 0.001)
		})
	}
}

func TestBuild_OptionalTextIsTrimmed(t *testing.T) {
	in := validInput()
	in.EquipmentDescription = "  leitor de código de barras "
	in.CostCenter = "CC-42"
	req, err := Build(in, Requester{Name: "Ana", SectorRole: "TI"}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, req.EquipmentDescription)
	assert.Equal(t, "leitor de código de barras", *req.EquipmentDescription)
	require.NotNil(t, req.CostCenter)
	assert.Equal(t, "CC-42", *req.CostCenter)
}

func TestValid_RejectsBrokenRows(t *testing.T) {
	base, err := Build(validInput(), Requester{Name: "Ana", SectorRole: "TI"}, time.Now())
	require.NoError(t, err)

	noCode := base
	noCode.EquipmentCode = ""
	assert.Error(t, noCode.Valid())

	zeroQty := base
	zeroQty.Quantity = 0
	assert.Error(t, zeroQty.Valid())

	negative := base
	negative.Value = ptr(-3)
	assert.Error(t, negative.Valid())
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Ana", FirstName("Ana Maria Souza"))
	assert.Equal(t, "Ana", FirstName("  Ana  "))
	assert.Equal(t, "", FirstName(" "))
}

func ptr(v float64) *float64 { return &v }
