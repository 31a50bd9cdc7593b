package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/readyset/realtor/internal/mcp"
	"github.com/readyset/realtor/internal/provider"
)

// Follow-up errors.
var (
	ErrLeadNotScheduled = errors.New("lead not found in follow-up schedules")
	ErrTemplateNotFound = errors.New("template not found")
)

// FollowUpTemplate is a reusable outreach message skeleton. Delay is the
// number of days to wait before the next contact.
type FollowUpTemplate struct {
	ID        string            `json:"template_id"`
	Name      string            `json:"name"`
	Content   string            `json:"content"`
	Channel   string            `json:"channel"`
	Condition map[string]string `json:"conditions"`
	DelayDays int               `json:"delay"`
}

// FollowUpSchedule tracks planned outreach for a single lead.
type FollowUpSchedule struct {
	LeadID      string             `json:"lead_id"`
	Templates   []FollowUpTemplate `json:"templates"`
	LastContact *time.Time         `json:"last_contact,omitempty"`
	NextContact *time.Time         `json:"next_contact,omitempty"`
	Status      string             `json:"status"`
	Notes       []string           `json:"notes"`
}

// FollowUpMessage is a generated, personalized outreach message.
type FollowUpMessage struct {
	Content     string            `json:"content"`
	GeneratedAt time.Time         `json:"generated_at"`
	Metadata    map[string]string `json:"metadata"`
}

// FollowUpPlanner maintains per-lead follow-up schedules and personalizes
// template messages through the chat-completion provider.
type FollowUpPlanner struct {
	llm       provider.Provider
	registry  *mcp.Registry
	handle    *mcp.AgentContext
	templates map[string]FollowUpTemplate
	schedules map[string]*FollowUpSchedule
	now       func() time.Time
	mu        sync.Mutex
	logger    *zap.Logger
}

// NewFollowUpPlanner registers a follow_up handle and seeds the built-in
// templates.
func NewFollowUpPlanner(llm provider.Provider, registry *mcp.Registry, logger *zap.Logger) *FollowUpPlanner {
	handle := registry.CreateAgent(mcp.TypeFollowUp, []string{"lead_nurturing"})
	registry.UpdateAgentState(handle.ID, mcp.StateReady)
	return &FollowUpPlanner{
		llm:       llm,
		registry:  registry,
		handle:    handle,
		templates: builtinTemplates(),
		schedules: make(map[string]*FollowUpSchedule),
		now:       time.Now,
		logger:    logger,
	}
}

// Handle exposes the planner's registry handle.
func (p *FollowUpPlanner) Handle() *mcp.AgentContext { return p.handle }

func builtinTemplates() map[string]FollowUpTemplate {
	return map[string]FollowUpTemplate{
		"initial_thank_you": {
			ID:        "initial_thank_you",
			Name:      "Initial Thank You",
			Content:   "Thank you for your interest in {property_address}. I enjoyed our conversation about {highlights}.",
			Channel:   "email",
			Condition: map[string]string{"stage": "initial_contact"},
			DelayDays: 1,
		},
		"property_update": {
			ID:        "property_update",
			Name:      "Property Update",
			Content:   "I wanted to update you on {property_address}. {update_details}",
			Channel:   "email",
			Condition: map[string]string{"stage": "viewing_scheduled"},
			DelayDays: 2,
		},
		"market_update": {
			ID:        "market_update",
			Name:      "Market Update",
			Content:   "Here's the latest market update for {area}: {market_details}",
			Channel:   "email",
			Condition: map[string]string{"stage": "nurturing"},
			DelayDays: 7,
		},
		"viewing_followup": {
			ID:        "viewing_followup",
			Name:      "Viewing Follow-up",
			Content:   "I hope you enjoyed viewing {property_address}. I'd love to hear your thoughts.",
			Channel:   "email",
			Condition: map[string]string{"stage": "viewed"},
			DelayDays: 1,
		},
	}
}

// CreateSchedule builds a follow-up schedule for a lead based on its
// pipeline stage.
func (p *FollowUpPlanner) CreateSchedule(leadID, stage string) *FollowUpSchedule {
	p.mu.Lock()
	defer p.mu.Unlock()

	templates := p.selectTemplates(stage)
	now := p.now()
	schedule := &FollowUpSchedule{
		LeadID:      leadID,
		Templates:   templates,
		LastContact: &now,
		Status:      "active",
		Notes:       []string{},
	}
	if len(templates) > 0 {
		schedule.NextContact = p.nextContact(templates[0])
	}
	p.schedules[leadID] = schedule
	return schedule
}

// Schedule returns the follow-up schedule for a lead.
func (p *FollowUpPlanner) Schedule(leadID string) (*FollowUpSchedule, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.schedules[leadID]
	return s, ok
}

// GenerateMessage personalizes a template for a lead and advances the
// lead's contact schedule.
func (p *FollowUpPlanner) GenerateMessage(ctx context.Context, leadID, templateID string, msgCtx map[string]string) (*FollowUpMessage, error) {
	p.mu.Lock()
	schedule, ok := p.schedules[leadID]
	if !ok {
		p.mu.Unlock()
		return nil, ErrLeadNotScheduled
	}
	template, ok := p.templates[templateID]
	if !ok {
		p.mu.Unlock()
		return nil, ErrTemplateNotFound
	}
	p.mu.Unlock()

	resp, err := p.llm.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "system", Content: "You are a real estate follow-up expert."},
			{Role: "user", Content: followUpPrompt(template, msgCtx)},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		p.registry.UpdateAgentState(p.handle.ID, mcp.StateError)
		return nil, fmt.Errorf("generate follow-up: %w", err)
	}
	p.registry.UpdateAgentState(p.handle.ID, mcp.StateReady)

	now := p.now()
	p.mu.Lock()
	schedule.LastContact = &now
	schedule.NextContact = p.nextContact(template)
	schedule.Notes = append(schedule.Notes,
		fmt.Sprintf("Sent %s on %s", template.Name, now.Format(time.RFC3339)))
	p.mu.Unlock()

	return &FollowUpMessage{
		Content:     resp.Content,
		GeneratedAt: now,
		Metadata:    map[string]string{"type": "follow_up", "template": template.ID},
	}, nil
}

func (p *FollowUpPlanner) selectTemplates(stage string) []FollowUpTemplate {
	if stage == "" {
		stage = "initial_contact"
	}
	var selected []FollowUpTemplate
	for _, t := range p.templates {
		if t.Condition["stage"] == stage {
			selected = append(selected, t)
		}
	}
	return selected
}

func (p *FollowUpPlanner) nextContact(t FollowUpTemplate) *time.Time {
	if t.DelayDays == 0 {
		return nil
	}
	next := p.now().AddDate(0, 0, t.DelayDays)
	return &next
}

func followUpPrompt(t FollowUpTemplate, msgCtx map[string]string) string {
	get := func(key string) string {
		if v := msgCtx[key]; v != "" {
			return v
		}
		return "Not specified"
	}
	return fmt.Sprintf(`Please generate a personalized follow-up message using this template:
%s

Context:
Lead Name: %s
Property Interest: %s
Last Interaction: %s
Stage: %s

Additional Notes:
%s

Please make the message personal and engaging while maintaining professionalism.`,
		t.Content, get("lead_name"), get("property_interest"),
		get("last_interaction"), get("stage"), strings.TrimSpace(msgCtx["notes"]))
}
