package requests

import (
	"fmt"
	"time"
)

// Labels used on the printable form. LabelValue is the only label rendered
// as currency.
const (
	LabelSubmittedAt   = "Data da Solicitação"
	LabelRequester     = "Solicitante"
	LabelSectorRole    = "Setor/Cargo"
	LabelModel         = "Modelo do Equipamento"
	LabelDescription   = "Descrição do Equipamento"
	LabelCode          = "Código do Equipamento"
	LabelSystem        = "Sistema Alocado"
	LabelQuantity      = "Quantidade"
	LabelCostCenter    = "Centro de Custo"
	LabelValue         = "Valor"
	LabelReason        = "Motivo do Envio"
	formTimestampStyle = "02/01/2006 15:04:05"
)

// FormField is one label/value line of the printable form. Value holds a
// string, an int64 or a float64.
type FormField struct {
	Label string
	Value any
}

// FormFields lays out r for the printable form in its fixed order, with
// "Não informado" and 0.0 standing in for absent optional values.
func FormFields(r Request, loc *time.Location) []FormField {
	if loc == nil {
		loc = time.UTC
	}
	value := 0.0
	if r.Value != nil {
		value = *r.Value
	}
	return []FormField{
		{LabelSubmittedAt, r.SubmittedAt.In(loc).Format(formTimestampStyle)},
		{LabelRequester, r.RequesterName},
		{LabelSectorRole, r.RequesterSectorRole},
		{LabelModel, r.EquipmentModel},
		{LabelDescription, textOr(r.EquipmentDescription, NotInformed)},
		{LabelCode, r.EquipmentCode},
		{LabelSystem, r.AllocatedSystem},
		{LabelQuantity, r.Quantity},
		{LabelCostCenter, textOr(r.CostCenter, NotInformed)},
		{LabelValue, value},
		{LabelReason, r.Reason},
	}
}

// FormFileName is solicitacao_<first name>_<yyyymmdd>.xlsx.
func FormFileName(r Request, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	first := FirstName(r.RequesterName)
	if first == "" {
		first = "solicitante"
	}
	return fmt.Sprintf("solicitacao_%s_%s.xlsx", first, r.SubmittedAt.In(loc).Format("20060102"))
}

// ReportFileName is relatorio_solicitacoes_<yyyymmdd>.xlsx for the export day.
func ReportFileName(now time.Time) string {
	return fmt.Sprintf("relatorio_solicitacoes_%s.xlsx", now.Format("20060102"))
}

func textOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
