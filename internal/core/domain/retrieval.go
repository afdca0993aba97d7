package domain

// ScoreSource identifies the stage that produced a retrieval score. Scores
// from different stages live on incompatible scales and must never be
// compared directly.
type ScoreSource string

const (
	ScoreLexical  ScoreSource = "lexical"
	ScoreSemantic ScoreSource = "semantic"
	ScoreRerank   ScoreSource = "rerank"
)

// Score is a stage-tagged relevance value.
type Score struct {
	Source ScoreSource `json:"source"`
	Value  float64     `json:"value"`
}

// Passage is an immutable unit of indexed site content.
type Passage struct {
	Text      string `json:"text"`
	SourceURL string `json:"source_url"`
	PageTitle string `json:"page_title"`
}

// SearchResult is a single retrieval hit from one engine.
type SearchResult struct {
	Content   string `json:"content"`
	SourceURL string `json:"source_url"`
	PageTitle string `json:"page_title"`
	Score     Score  `json:"score"`
}

// VectorHit is a raw nearest-neighbor match carrying the store's distance.
type VectorHit struct {
	Passage  Passage
	Distance float64
}

// RelevanceHit maps a reranked document back to its candidate index.
type RelevanceHit struct {
	Index     int
	Relevance float64
}

// RankedResult is a candidate annotated with a cross-encoder relevance
// score in [0,1].
type RankedResult struct {
	SearchResult
	Relevance float64 `json:"relevance"`
}

// ConversationTurn is one prior message, supplied read-only by the caller.
type ConversationTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// AnswerOutcome is the terminal state of the synthesizer state machine.
type AnswerOutcome string

const (
	// OutcomeAnswered means the answer cites a retrieved source.
	OutcomeAnswered AnswerOutcome = "answered"
	// OutcomeAnsweredFromHistory means the answer is grounded in the
	// conversation alone and carries no citation.
	OutcomeAnsweredFromHistory AnswerOutcome = "answered_from_history"
	// OutcomeNoInformation means no candidate was judged relevant.
	OutcomeNoInformation AnswerOutcome = "no_information"
	// OutcomeFailed means generation failed and a fixed apology was emitted.
	OutcomeFailed AnswerOutcome = "failed"
)

// Answer is the terminal artifact of one pipeline run. SourceCount is the
// number of ranked candidates the synthesizer saw, kept for observability.
type Answer struct {
	Text        string        `json:"text"`
	HasCitation bool          `json:"has_citation"`
	Outcome     AnswerOutcome `json:"outcome"`
	SourceCount int           `json:"source_count"`
}

// DedupPrefixLen is the content-prefix length of the candidate fingerprint.
// Near-duplicates that diverge only after this prefix are not caught; that
// is a documented property of the pipeline, not a bug.
const DedupPrefixLen = 100

// FingerprintKey dedups candidates by source URL plus a fixed content prefix.
func FingerprintKey(r SearchResult) string {
	prefix := r.Content
	if len(prefix) > DedupPrefixLen {
		prefix = prefix[:DedupPrefixLen]
	}
	return r.SourceURL + "\x00" + prefix
}
