// Package research implements the two-stage research pipeline: a search
// query is formulated from the user's topic, one web search is issued, the
// raw records are normalized, and a language model synthesizes a structured
// answer with citations.
//
// The pipeline is a fixed state machine (START -> RESEARCH -> ANSWER -> END)
// over a WorkflowState owned by a single run. Search and language model
// access go through the SearchProvider and LanguageModel interfaces; see the
// llm and search packages for concrete implementations.
//
//	wf, err := research.NewWorkflow(llm.NewClient(provider), tavily)
//	answer, err := wf.Run(ctx, research.RunRequest{Topic: "quantum computing 2025"})
package research
