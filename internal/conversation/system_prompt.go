package conversation

import (
	"fmt"
	"strings"
	"time"
)

const defaultBusinessName = "BarberPro"

var weekdaysPT = [...]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"}

// formatDatePT renders now as "sábado, 17/10/2026 14:05".
func formatDatePT(now time.Time) string {
	return fmt.Sprintf("%s, %s", weekdaysPT[now.Weekday()], now.Format("02/01/2006 15:04"))
}

// buildSystemPrompt returns the receptionist instructions for one turn.
func buildSystemPrompt(businessName string, now time.Time) string {
	if strings.TrimSpace(businessName) == "" {
		businessName = defaultBusinessName
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Você é a recepcionista da %s, uma barbearia.\n", businessName)
	fmt.Fprintf(&b, "Data e hora atuais: %s (fuso %s).\n\n", formatDatePT(now), now.Location())
	b.WriteString("Regras:\n")
	fmt.Fprintf(&b, "1. Quando o cliente cumprimentar ou iniciar a conversa, chame %s imediatamente.\n", ToolListServices)
	b.WriteString("2. Depois que o cliente escolher um serviço, pergunte o dia, o horário, o nome e o telefone.\n")
	fmt.Fprintf(&b, "3. Só chame %s quando tiver serviço, dia, horário, nome e telefone. ", ToolBookAppointment)
	b.WriteString("Converta o dia e o horário para ISO-8601 (ex.: 2025-11-20T14:00:00) usando a data atual como referência.\n")
	b.WriteString("4. Seja formal e objetiva. Não use emojis.\n")
	return b.String()
}
