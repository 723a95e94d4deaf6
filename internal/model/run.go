package model

import "time"

// AgentKind identifies which analysis agent produced a run.
type AgentKind string

const (
	AgentLocal AgentKind = "local"
	AgentLLM   AgentKind = "llm"
)

// RunStatus is the overall outcome of an agent run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// AgentRun records one execution of the analysis process. Written once at
// completion and immutable afterwards.
type AgentRun struct {
	ID              int64
	RunAt           time.Time
	Kind            AgentKind
	LLMProvider     string
	LLMModel        string
	AssetsProcessed int
	AssetsFailed    int
	Duration        time.Duration
	Status          RunStatus
	ErrorMessage    string
}

// RecommendationRecord is one per-symbol output of an agent run.
type RecommendationRecord struct {
	ID                int64
	RunID             int64
	Symbol            string
	Recommendation    Recommendation
	Rationale         string
	PortfolioAnalysis string
	Confidence        *float64
	Price             *float64
	CreatedAt         time.Time

	// Filled by history queries that join the owning run.
	AgentKind   AgentKind
	LLMProvider string
	LLMModel    string
}

// AgentRunSummary is a run row plus its recommendation count, for listings.
type AgentRunSummary struct {
	AgentRun
	Recommendations int
}
