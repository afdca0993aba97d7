package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
	"github.com/kkucdk/assistant-backend/internal/core/ports"
)

const (
	// historyWindow bounds how many trailing turns feed pronoun resolution.
	defaultHistoryWindow = 6
	// historyTurnMaxChars clamps each turn before it enters the prompt.
	historyTurnMaxChars = 300
)

const reformulateSystemPrompt = `Du er en ekspert i at omformulere søgeforespørgsler til søgning baseret på samtalehistorik. Returner KUN den omformulerede søgeforespørgsel, ingen forklaring.`

// QueryReformulator rewrites the user query into a search-optimized variant
// using the recent conversation for pronoun and ellipsis resolution. The
// original query is always kept at position 0 so a degraded rewrite can
// never lose the canonical query.
type QueryReformulator struct {
	generator     ports.TextGenerator
	historyWindow int
}

func NewQueryReformulator(generator ports.TextGenerator, historyWindow int) *QueryReformulator {
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	return &QueryReformulator{
		generator:     generator,
		historyWindow: historyWindow,
	}
}

// Reformulate returns the query variants to search with. Without history
// there is no context to resolve references against, so no rewrite is
// attempted. Rewrite failures fall open to the original query alone.
func (r *QueryReformulator) Reformulate(ctx context.Context, query string, history []domain.ConversationTurn) []string {
	if len(history) == 0 {
		return []string{query}
	}

	rewritten, err := r.generator.Generate(ctx, reformulateSystemPrompt, r.buildPrompt(query, history))
	if err != nil {
		slog.Warn("query_reformulation_failed", "error", err)
		return []string{query}
	}

	rewritten = firstLine(rewritten)
	rewritten = strings.Trim(rewritten, `"' `)
	if rewritten == "" || rewritten == query {
		return []string{query}
	}
	return []string{query, rewritten}
}

func (r *QueryReformulator) buildPrompt(query string, history []domain.ConversationTurn) string {
	if len(history) > r.historyWindow {
		history = history[len(history)-r.historyWindow:]
	}

	lines := make([]string, 0, len(history))
	for _, turn := range history {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		if runes := []rune(text); len(runes) > historyTurnMaxChars {
			text = string(runes[:historyTurnMaxChars])
		}
		role := "Assistent"
		if turn.Role == domain.RoleUser {
			role = "Bruger"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, text))
	}

	return fmt.Sprintf(`Samtalehistorik:
%s

Nuværende bruger-spørgsmål: "%s"

DIN OPGAVE:
1. ANALYSER samtalehistorikken for at forstå konteksten af brugerens spørgsmål
2. IDENTIFICER hvad brugeren egentlig spørger om baseret på samtaleforløbet
3. OMFORMULER spørgsmålet til en optimal søgeforespørgsel der:
   - Erstatter ALLE pronominer (hans, hendes, det, den, dem) med konkrete navne/ting fra samtalen
   - Inkluderer relevant kontekst fra samtalen der gør søgningen mere præcis
   - Er formuleret som en klar, specifik søgeforespørgsel, ikke en hel sætning

EKSEMPLER:
- Samtale om "direktør Nicolai Halberg" → Spørgsmål: "hvad er hans nummer?" → Omskrivning: "Nicolai Halberg telefonnummer kontaktoplysninger"
- Samtale om "behandlingstilbud" → Spørgsmål: "hvor kan jeg få det?" → Omskrivning: "hvor kan jeg få behandling for stofmisbrug KKUC"
- Samtale om "åbningstider" → Spørgsmål: "hvad med weekenden?" → Omskrivning: "KKUC åbningstider weekend lørdag søndag"

Returner KUN den omformulerede søgeforespørgsel, ingen forklaring:`, strings.Join(lines, "\n"), query)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
