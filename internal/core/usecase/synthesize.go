package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
	"github.com/kkucdk/assistant-backend/internal/core/ports"
)

// Fixed user-facing texts. These are part of the pipeline contract: callers
// and tests match them verbatim.
const (
	// NoResultsText is emitted when retrieval produced no candidates at all.
	NoResultsText = "Jeg kunne desværre ikke finde relevant information om dette emne på KKUC's hjemmeside."
	// NoInformationText is what the model is instructed to emit when no
	// candidate is relevant and the history does not answer the question.
	NoInformationText = "Jeg har desværre ikke information om dette emne på KKUC's hjemmeside. 💙"
	// GenerationFailedText is the fixed apology for generation failures.
	GenerationFailedText = "Beklager, jeg kunne ikke generere et svar. Prøv venligst igen."
)

const citationMarker = "🔗"

var markdownLinkPattern = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)`)

const synthesizeSystemPrompt = `Du er en hjælpsom og empatisk AI-assistent for KKUC (Københavns Kommunes Rusmiddelcenter).

Din opgave er at hjælpe brugere med spørgsmål om stofmisbrug, alkoholmisbrug og behandlingsmuligheder.

Vigtige retningslinjer:
- Svar altid på dansk
- Vær MEGET empatisk, varm og ikke-dømmende 💙
- Fokuser DIREKTE på brugerens spørgsmål
- Hold svarene korte og præcise
- Brug kun information fra den givne kontekst eller samtalehistorikken
- Nævn ALDRIG navne, telefonnumre, adresser eller datoer som ikke står ordret i konteksten eller samtalen`

// Synthesizer decides whether sufficient grounding exists and produces the
// final answer. The relevance judgement itself is delegated to the
// generation model; the branch outcomes are classified from the returned
// text so the rest of the system can assert on them.
//
// Per-request state machine: NoCandidates is terminal without a model call;
// Evaluating invokes the model once and terminates in Answered,
// AnsweredFromHistory, or NoInformation.
type Synthesizer struct {
	generator     ports.TextGenerator
	historyWindow int
}

func NewSynthesizer(generator ports.TextGenerator, historyWindow int) *Synthesizer {
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	return &Synthesizer{
		generator:     generator,
		historyWindow: historyWindow,
	}
}

func (s *Synthesizer) Synthesize(ctx context.Context, query string, ranked []domain.RankedResult, history []domain.ConversationTurn) *domain.Answer {
	if len(ranked) == 0 {
		return &domain.Answer{
			Text:        NoResultsText,
			HasCitation: false,
			Outcome:     domain.OutcomeNoInformation,
		}
	}

	text, err := s.generator.Generate(ctx, synthesizeSystemPrompt, s.buildPrompt(query, ranked, history))
	if err != nil {
		slog.Warn("answer_generation_failed", "error", err)
		return &domain.Answer{
			Text:        GenerationFailedText,
			HasCitation: false,
			Outcome:     domain.OutcomeFailed,
		}
	}

	return classifyAnswer(strings.TrimSpace(text), ranked)
}

// classifyAnswer maps the generated text onto an explicit outcome. A
// citation only counts when its URL is one of the supplied sources; a link
// to any other URL is fabricated and gets stripped, leaving a
// history-grounded answer.
func classifyAnswer(text string, ranked []domain.RankedResult) *domain.Answer {
	if text == "" || strings.Contains(text, NoInformationText) {
		return &domain.Answer{
			Text:        NoInformationText,
			HasCitation: false,
			Outcome:     domain.OutcomeNoInformation,
		}
	}

	if strings.Contains(text, citationMarker) {
		if url, ok := firstCitedURL(text); ok && urlAmongSources(url, ranked) {
			return &domain.Answer{
				Text:        text,
				HasCitation: true,
				Outcome:     domain.OutcomeAnswered,
			}
		}
		slog.Warn("citation_url_not_in_sources_stripped")
		text = stripCitation(text)
	}

	return &domain.Answer{
		Text:        text,
		HasCitation: false,
		Outcome:     domain.OutcomeAnsweredFromHistory,
	}
}

func firstCitedURL(text string) (string, bool) {
	match := markdownLinkPattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[1], true
}

func urlAmongSources(url string, ranked []domain.RankedResult) bool {
	for _, r := range ranked {
		if r.SourceURL == url {
			return true
		}
	}
	return false
}

func stripCitation(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.Contains(line, citationMarker) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func (s *Synthesizer) buildPrompt(query string, ranked []domain.RankedResult, history []domain.ConversationTurn) string {
	var context strings.Builder
	for i, r := range ranked {
		fmt.Fprintf(&context, "[CHUNK %d]\nTitel: %s\nURL: %s\nIndhold: %s\n", i+1, r.PageTitle, r.SourceURL, r.Content)
		if i < len(ranked)-1 {
			context.WriteString("\n---\n")
		}
	}

	historyBlock := "(ingen tidligere samtale)"
	if len(history) > 0 {
		turns := history
		if len(turns) > s.historyWindow {
			turns = turns[len(turns)-s.historyWindow:]
		}
		lines := make([]string, 0, len(turns))
		for _, turn := range turns {
			role := "Assistent"
			if turn.Role == domain.RoleUser {
				role = "Bruger"
			}
			lines = append(lines, fmt.Sprintf("%s: %s", role, strings.TrimSpace(turn.Text)))
		}
		historyBlock = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`Du får flere informationsstykker fra KKUC's hjemmeside. Din opgave er at:

1. VURDERE om NOGEN af informationsstykkerne er relevante for brugerens spørgsmål
2. HVIS der er relevant information:
   - Start dit svar med linket til den MEST relevante chunk i dette format: %s [Titel](URL)
   - Saml information fra ALLE relevante chunks (ikke kun én)
   - Giv et KORT, empatisk svar (2-3 korte afsnit) 💙
3. HVIS INGEN chunks er relevante, men spørgsmålet kan besvares alene ud fra samtalehistorikken:
   - Svar ud fra samtalehistorikken og inkluder IKKE noget link
4. HVIS INGEN af delene gælder:
   - Inkluder IKKE noget link
   - Skriv præcis: "%s"
   - Opfind IKKE information

Samtalehistorik:
%s

Brugerens spørgsmål: %s

Tilgængelige informationsstykker:
%s

KRITISK VIGTIGT:
- Brug information fra ALLE relevante chunks, ikke kun én
- Vær MEGET streng med relevans - hvis informationen ikke direkte besvarer spørgsmålet, sig at du ikke har information
- Generer ALDRIG svar baseret på din egen viden - kun fra de givne chunks eller samtalen
- Hvis du inkluderer et link, kopier URL'en PRÆCIST fra den mest relevante chunk

Svar:`, citationMarker, NoInformationText, historyBlock, query, context.String())
}
