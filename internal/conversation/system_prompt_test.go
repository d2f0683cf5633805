package conversation

import (
	"strings"
	"testing"
	"time"
)

func TestBuildSystemPrompt(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	now := time.Date(2026, 10, 17, 14, 5, 0, 0, loc)

	prompt := buildSystemPrompt("", now)

	for _, want := range []string{
		"recepcionista da BarberPro",
		"sábado, 17/10/2026 14:05",
		ToolListServices,
		ToolBookAppointment,
		"ISO-8601",
		"Não use emojis",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q:\n%s", want, prompt)
		}
	}
}

func TestBuildSystemPromptCustomName(t *testing.T) {
	prompt := buildSystemPrompt("Barbearia do Zé", time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	if !strings.Contains(prompt, "recepcionista da Barbearia do Zé") {
		t.Fatalf("expected custom business name, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "segunda-feira") {
		t.Fatalf("expected weekday in prompt, got:\n%s", prompt)
	}
}
