package conversation

import (
	"errors"
	"fmt"

	"github.com/wolfman30/smart-schedule/internal/booking"
)

const (
	ToolListServices    = "list_services"
	ToolBookAppointment = "book_appointment"
)

// ErrInvalidArguments is returned when a tool argument has the wrong type.
var ErrInvalidArguments = errors.New("conversation: invalid tool arguments")

// Tools returns the declarations sent with every model call.
func Tools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        ToolListServices,
			Description: "Lista os serviços da barbearia com preços. Use no início da conversa ou quando o cliente perguntar pelos serviços.",
			Properties:  map[string]ToolProperty{},
		},
		{
			Name:        ToolBookAppointment,
			Description: "Agenda um horário. Só chame quando tiver serviço, dia, horário, nome e telefone do cliente.",
			Properties: map[string]ToolProperty{
				"customerName":  {Type: "string", Description: "Nome do cliente"},
				"customerPhone": {Type: "string", Description: "Telefone do cliente"},
				"serviceName":   {Type: "string", Description: "Nome do serviço escolhido"},
				"dateTimeIso":   {Type: "string", Description: "Data e hora no formato ISO-8601, por exemplo 2025-11-20T14:00:00"},
			},
			Required: []string{"customerName", "customerPhone", "serviceName", "dateTimeIso"},
		},
	}
}

// DecodeBookingArgs maps book_appointment arguments onto a booking request.
// Absent keys decode to empty strings; any non-string value is rejected.
func DecodeBookingArgs(args map[string]any) (booking.Request, error) {
	var req booking.Request
	fields := []struct {
		key string
		dst *string
	}{
		{"customerName", &req.CustomerName},
		{"customerPhone", &req.CustomerPhone},
		{"serviceName", &req.ServiceName},
		{"dateTimeIso", &req.DateTimeISO},
	}
	for _, f := range fields {
		raw, ok := args[f.key]
		if !ok || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return booking.Request{}, fmt.Errorf("%w: %s is %T", ErrInvalidArguments, f.key, raw)
		}
		*f.dst = s
	}
	return req, nil
}
