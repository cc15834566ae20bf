package requests

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// StatusAwaitingShipment is the only status this system ever writes.
	StatusAwaitingShipment = "Aguardando Envio"

	// NotInformed replaces absent optional text on generated forms.
	NotInformed = "Não informado"

	DefaultTimezone = "America/Sao_Paulo"
)

// Request is one stored maintenance request row. Optional columns are
// pointers so that NULL survives the round trip.
type Request struct {
	ID                   int64
	SubmittedAt          time.Time
	RequesterName        string
	RequesterSectorRole  string
	EquipmentModel       string
	EquipmentDescription *string
	EquipmentCode        string
	AllocatedSystem      string
	Quantity             int64
	CostCenter           *string
	Value                *float64
	Reason               string
	PhotoURL             *string
	Status               string
}

// Input is the raw content of the new-request form before validation.
type Input struct {
	EquipmentModel       string
	EquipmentDescription string
	EquipmentCode        string
	AllocatedSystem      string
	Quantity             string
	CostCenter           string
	Value                string
	Reason               string
}

// ValidationError lists every field that failed, keyed by form field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, name := range orderedInputFields {
		if _, ok := e.Fields[name]; ok {
			names = append(names, name)
		}
	}
	return "invalid request: " + strings.Join(names, ", ")
}

var orderedInputFields = []string{"modelo", "codigo", "sistema", "quantidade", "valor", "motivo"}

// Requester is the identity copied onto a request at submission time.
type Requester struct {
	Name       string
	SectorRole string
}

// Build validates the form input and produces a request ready to be inserted.
// Nothing is stored here; a returned error means the gateway is never called.
func Build(in Input, who Requester, submittedAt time.Time) (Request, error) {
	fields := map[string]string{}

	model := strings.TrimSpace(in.EquipmentModel)
	code := strings.TrimSpace(in.EquipmentCode)
	system := strings.TrimSpace(in.AllocatedSystem)
	reason := strings.TrimSpace(in.Reason)
	if model == "" {
		fields["modelo"] = "Modelo do Equipamento é obrigatório."
	}
	if code == "" {
		fields["codigo"] = "Código do Equipamento é obrigatório."
	}
	if system == "" {
		fields["sistema"] = "Sistema Alocado é obrigatório."
	}
	if reason == "" {
		fields["motivo"] = "Motivo do Envio é obrigatório."
	}

	quantity, err := ParseQuantity(in.Quantity)
	if err != nil {
		fields["quantidade"] = err.Error()
	}
	value, err := ParseValue(in.Value)
	if err != nil {
		fields["valor"] = err.Error()
	}

	if strings.TrimSpace(who.Name) == "" || strings.TrimSpace(who.SectorRole) == "" {
		return Request{}, errors.New("requester identity is incomplete")
	}
	if len(fields) > 0 {
		return Request{}, &ValidationError{Fields: fields}
	}

	return Request{
		SubmittedAt:          submittedAt,
		RequesterName:        who.Name,
		RequesterSectorRole:  who.SectorRole,
		EquipmentModel:       model,
		EquipmentDescription: optionalText(in.EquipmentDescription),
		EquipmentCode:        code,
		AllocatedSystem:      system,
		Quantity:             quantity,
		CostCenter:           optionalText(in.CostCenter),
		Value:                value,
		Reason:               reason,
		Status:               StatusAwaitingShipment,
	}, nil
}

// Valid checks the storage invariants on an already built row.
func (r Request) Valid() error {
	switch {
	case strings.TrimSpace(r.RequesterName) == "":
		return errors.New("requester name is required")
	case strings.TrimSpace(r.RequesterSectorRole) == "":
		return errors.New("requester sector/role is required")
	case strings.TrimSpace(r.EquipmentModel) == "":
		return errors.New("equipment model is required")
	case strings.TrimSpace(r.EquipmentCode) == "":
		return errors.New("equipment code is required")
	case strings.TrimSpace(r.AllocatedSystem) == "":
		return errors.New("allocated system is required")
	case strings.TrimSpace(r.Reason) == "":
		return errors.New("reason is required")
	case r.Quantity < 1:
		return fmt.Errorf("quantity must be at least 1, got %d", r.Quantity)
	case r.Value != nil && *r.Value < 0:
		return errors.New("value must not be negative")
	}
	return nil
}

// FirstName is the first space-separated token of the requester name, used
// in greetings and download filenames.
func FirstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ParseQuantity requires a whole number of at least 1.
func ParseQuantity(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("Quantidade é obrigatória.")
	}
	q, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("Quantidade deve ser um número inteiro.")
	}
	if q < 1 {
		return 0, errors.New("Quantidade deve ser no mínimo 1.")
	}
	return q, nil
}

// thousandsGrouped matches dot-grouped integers such as "1.234" or "12.500".
var thousandsGrouped = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

// ParseValue accepts "1234.5", "1234,50", "1.234,50" and "1.234". A dot
// followed by exactly three digits groups thousands. Zero and blank both
// mean the value was not provided.
func ParseValue(raw string) (*float64, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "R$"))
	if raw == "" {
		return nil, nil
	}
	normalized := raw
	if strings.Contains(normalized, ",") || thousandsGrouped.MatchString(normalized) {
		normalized = strings.ReplaceAll(normalized, ".", "")
		normalized = strings.ReplaceAll(normalized, ",", ".")
	}
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, errors.New("Valor deve ser numérico.")
	}
	if v < 0 {
		return nil, errors.New("Valor não pode ser negativo.")
	}
	if v == 0 {
		return nil, nil
	}
	v = math.Round(v*100) / 100
	return &v, nil
}

func optionalText(raw string) *string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	return &v
}
