package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aixgo-dev/reviewmesh/internal/llm/provider"
	"github.com/aixgo-dev/reviewmesh/internal/observability"
)

// AnalyzerParams configures a single analyze/synthesize/recommend call.
// Unknown fields passed over the wire are ignored at the boundary that
// parses them, not here.
type AnalyzerParams struct {
	ProductCategory string
	MaxTokens       int
	Temperature     float64
	ModelName       string
}

func (p AnalyzerParams) withDefaults() AnalyzerParams {
	if p.ProductCategory == "" {
		p.ProductCategory = DefaultCategory
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = 150
	}
	if p.Temperature == 0 {
		p.Temperature = 0.3
	}
	return p
}

// ErrNotSupported is returned by Synthesize/Recommend on analyzers that
// are not the master or business advisor specialization.
var ErrNotSupported = fmt.Errorf("operation not supported by this analyzer")

// Analyzer is the single polymorphic capability every specialization
// implements. Differences between specializations live entirely in the
// agentType/prompt/focus data selected at construction time, never in a
// class hierarchy.
type Analyzer interface {
	AgentType() string
	AgentName() string
	Analyze(ctx context.Context, text string, params AnalyzerParams) AnalysisRecord
	Synthesize(ctx context.Context, departmentRecords []AnalysisRecord, review string) AnalysisRecord
	Recommend(ctx context.Context, master AnalysisRecord, departmentRecords []AnalysisRecord, review string) AnalysisRecord
}

// responseSchema is shared by every analyzer call; it mirrors the Python
// original's SentimentResult fields.
var responseSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"sentiment": {"type": "string"},
		"confidence": {"type": "number"},
		"emotions": {"type": "array", "items": {"type": "string"}},
		"topics": {"type": "array", "items": {"type": "string"}},
		"reasoning": {"type": "string"},
		"business_impact": {"type": "string"}
	},
	"required": ["sentiment", "confidence", "reasoning"]
}`)

// baseAnalyzer holds the fields and LLM round-trip shared by every
// specialization, mirroring the teacher's BaseAgent embedding pattern.
type baseAnalyzer struct {
	agentType string
	agentName string
	provider  provider.Provider
	model     string
}

func (a *baseAnalyzer) AgentType() string { return a.agentType }
func (a *baseAnalyzer) AgentName() string { return a.agentName }

// call issues one structured completion and normalizes the result,
// falling back to a well-formed neutral record on any failure. This is
// the single place the fallback-on-failure policy of spec §4.1/§7 is
// enforced.
func (a *baseAnalyzer) call(ctx context.Context, systemPrompt, userPrompt string, params AnalyzerParams) AnalysisRecord {
	params = params.withDefaults()
	model := a.model
	if params.ModelName != "" {
		model = params.ModelName
	}

	startTime := time.Now()
	resp, err := a.provider.CreateStructured(ctx, provider.StructuredRequest{
		CompletionRequest: provider.CompletionRequest{
			Messages: []provider.Message{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userPrompt},
			},
			Model:       model,
			Temperature: params.Temperature,
			MaxTokens:   params.MaxTokens,
		},
		ResponseSchema: responseSchema,
		ResponseFormat: "json_object",
	})
	if err != nil {
		a.trackGeneration(ctx, model, startTime, userPrompt, nil, err)
		return FallbackRecord(a.agentType, a.agentName, err)
	}

	var parsed struct {
		Sentiment      string   `json:"sentiment"`
		Confidence     float64  `json:"confidence"`
		Emotions       []string `json:"emotions"`
		Topics         []string `json:"topics"`
		Reasoning      string   `json:"reasoning"`
		BusinessImpact string   `json:"business_impact"`
	}
	if err := json.Unmarshal(resp.Data, &parsed); err != nil {
		a.trackGeneration(ctx, model, startTime, userPrompt, resp, err)
		return FallbackRecord(a.agentType, a.agentName, fmt.Errorf("parse analyzer output: %w", err))
	}

	a.trackGeneration(ctx, model, startTime, userPrompt, resp, nil)

	return AnalysisRecord{
		AgentType:      a.agentType,
		AgentName:      a.agentName,
		Sentiment:      Sentiment(parsed.Sentiment),
		Confidence:     parsed.Confidence,
		Emotions:       parsed.Emotions,
		Topics:         parsed.Topics,
		Reasoning:      parsed.Reasoning,
		BusinessImpact: parsed.BusinessImpact,
	}.Normalize()
}

// trackGeneration reports one LLM round trip to Langfuse when a client is
// configured (DefaultLangfuseClient is nil, and a no-op, until
// observability.InitLangfuse runs). Tracking failures are discarded and
// never affect the analyzer's return value.
func (a *baseAnalyzer) trackGeneration(ctx context.Context, model string, startTime time.Time, input string, resp *provider.StructuredResponse, callErr error) {
	client := observability.DefaultLangfuseClient
	if client == nil {
		return
	}

	gen := observability.NewGeneration(a.agentType+"."+a.agentName, model, startTime).
		WithInput(input).
		WithMetadata(map[string]interface{}{"agent_type": a.agentType})

	if callErr != nil {
		gen.StatusMessage = callErr.Error()
		gen.Level = "ERROR"
	} else if resp != nil {
		gen.WithOutput(string(resp.Data)).
			WithUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, 0, 0)
	}
	gen.Finish()

	_ = client.TrackGeneration(ctx, gen)
}

// departmentAnalyzer implements the five department specializations:
// quality, experience, user_experience, business, technical.
type departmentAnalyzer struct {
	*baseAnalyzer
}

func newDepartmentAnalyzer(agentType, agentName string, p provider.Provider, model string) *departmentAnalyzer {
	return &departmentAnalyzer{&baseAnalyzer{
		agentType: agentType,
		agentName: agentName,
		provider:  p,
		model:     model,
	}}
}

func (d *departmentAnalyzer) Analyze(ctx context.Context, text string, params AnalyzerParams) AnalysisRecord {
	params = params.withDefaults()
	focus := FocusAreas(d.agentType, params.ProductCategory)
	system := fmt.Sprintf(
		"You are a %s department sentiment analyst reviewing %s. Focus on: %s. "+
			"Respond with JSON containing sentiment, confidence, emotions, topics, reasoning, business_impact.",
		d.agentType, CategoryDescription(params.ProductCategory), joinFocus(focus),
	)
	user := fmt.Sprintf("Review:\n%s", text)
	return d.call(ctx, system, user, params)
}

func (d *departmentAnalyzer) Synthesize(context.Context, []AnalysisRecord, string) AnalysisRecord {
	return FallbackRecord(d.agentType, d.agentName, ErrNotSupported)
}

func (d *departmentAnalyzer) Recommend(context.Context, AnalysisRecord, []AnalysisRecord, string) AnalysisRecord {
	return FallbackRecord(d.agentType, d.agentName, ErrNotSupported)
}

func joinFocus(focus []string) string {
	out := ""
	for i, f := range focus {
		if i > 0 {
			out += "; "
		}
		out += f
	}
	return out
}

// NewAnalyzer constructs the analyzer for a given department agent type.
// Unknown agent types still get a working analyzer, but with an empty
// focus list, since FocusAreas has no entry for them.
func NewAnalyzer(agentType string, p provider.Provider, model string) Analyzer {
	return newDepartmentAnalyzer(agentType, analyzerClassName(agentType), p, model)
}

func analyzerClassName(agentType string) string {
	switch agentType {
	case "quality":
		return "ProductQualityAnalyzer"
	case "experience":
		return "CustomerExperienceAnalyzer"
	case "user_experience":
		return "UserExperienceAnalyzer"
	case "business":
		return "BusinessImpactAnalyzer"
	case "technical":
		return "TechnicalSpecAnalyzer"
	case "master_analyst":
		return "MasterAnalystAnalyzer"
	case "business_advisor":
		return "BusinessAdvisorAnalyzer"
	default:
		return "GenericAnalyzer"
	}
}
