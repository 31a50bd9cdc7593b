package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/readyset/realtor/internal/mcp"
	"github.com/readyset/realtor/internal/provider"
)

// QualificationCriteria captures what the realtor is screening a lead for.
type QualificationCriteria struct {
	BudgetMin    float64 `json:"budget_min,omitempty"`
	BudgetMax    float64 `json:"budget_max,omitempty"`
	PropertyType string  `json:"property_type,omitempty"`
	Location     string  `json:"location,omitempty"`
	Timeline     string  `json:"timeline,omitempty"`
	PreApproved  *bool   `json:"pre_approved,omitempty"`
}

// Qualification is the structured result of a lead assessment.
type Qualification struct {
	Status      string    `json:"qualification_status"`
	KeyInsights string    `json:"key_insights"`
	NextSteps   string    `json:"recommended_next_steps"`
	RiskFactors string    `json:"risk_factors"`
	QualifiedAt time.Time `json:"qualified_at"`
}

// LeadQualifier assesses leads from their conversation history.
type LeadQualifier struct {
	llm      provider.Provider
	registry *mcp.Registry
	handle   *mcp.AgentContext
	now      func() time.Time
	logger   *zap.Logger
}

// NewLeadQualifier registers a lead_generation handle and returns the qualifier.
func NewLeadQualifier(llm provider.Provider, registry *mcp.Registry, logger *zap.Logger) *LeadQualifier {
	handle := registry.CreateAgent(mcp.TypeLeadGeneration, []string{"lead_qualification"})
	registry.UpdateAgentState(handle.ID, mcp.StateReady)
	return &LeadQualifier{llm: llm, registry: registry, handle: handle, now: time.Now, logger: logger}
}

// Handle exposes the qualifier's registry handle.
func (q *LeadQualifier) Handle() *mcp.AgentContext { return q.handle }

// Qualify scores a lead against the criteria using the conversation
// history. The free-text response is split on blank lines into the four
// result sections.
func (q *LeadQualifier) Qualify(ctx context.Context, criteria QualificationCriteria, history []string) (*Qualification, error) {
	resp, err := q.llm.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "system", Content: "You are a real estate lead qualification expert."},
			{Role: "user", Content: qualificationPrompt(criteria, history)},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		q.registry.UpdateAgentState(q.handle.ID, mcp.StateError)
		return nil, fmt.Errorf("qualify lead: %w", err)
	}
	q.registry.UpdateAgentState(q.handle.ID, mcp.StateReady)

	result := parseQualification(resp.Content)
	result.QualifiedAt = q.now()
	return result, nil
}

func qualificationPrompt(c QualificationCriteria, history []string) string {
	orNotSpecified := func(s string) string {
		if s == "" {
			return "Not specified"
		}
		return s
	}
	budget := func(v float64) string {
		if v == 0 {
			return "Not specified"
		}
		return fmt.Sprintf("%.0f", v)
	}
	preApproved := "Not specified"
	if c.PreApproved != nil {
		preApproved = fmt.Sprintf("%t", *c.PreApproved)
	}

	return fmt.Sprintf(`Please analyze this lead conversation and determine qualification based on the following criteria:
- Budget Range: %s to %s
- Property Type: %s
- Location: %s
- Timeline: %s
- Pre-approved: %s

Conversation History:
%s

Please provide a structured analysis of:
1. Lead Qualification Status
2. Key Insights
3. Recommended Next Steps
4. Risk Factors`,
		budget(c.BudgetMin), budget(c.BudgetMax),
		orNotSpecified(c.PropertyType), orNotSpecified(c.Location),
		orNotSpecified(c.Timeline), preApproved,
		strings.Join(history, "\n"))
}

func parseQualification(text string) *Qualification {
	sections := strings.Split(text, "\n\n")
	result := &Qualification{Status: "Unknown"}
	if len(sections) > 0 && sections[0] != "" {
		result.Status = sections[0]
	}
	if len(sections) > 1 {
		result.KeyInsights = sections[1]
	}
	if len(sections) > 2 {
		result.NextSteps = sections[2]
	}
	if len(sections) > 3 {
		result.RiskFactors = sections[3]
	}
	return result
}
