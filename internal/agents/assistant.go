package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/readyset/realtor/internal/mcp"
	"github.com/readyset/realtor/internal/provider"
	"github.com/readyset/realtor/internal/scheduler"
)

const schedulingSystemPrompt = "You are a professional real estate scheduling assistant."

// Assistant generates appointment messages for the scheduling engine. It
// implements scheduler.Notifier by prompting the chat-completion provider
// and reports its registry handle back to ready once a message is produced.
type Assistant struct {
	llm      provider.Provider
	registry *mcp.Registry
	handle   *mcp.AgentContext
	logger   *zap.Logger
}

// NewAssistant registers a scheduler handle and returns the assistant.
func NewAssistant(llm provider.Provider, registry *mcp.Registry, logger *zap.Logger) *Assistant {
	handle := registry.CreateAgent(mcp.TypeScheduler, []string{"appointment_messages"})
	registry.UpdateAgentState(handle.ID, mcp.StateReady)
	return &Assistant{llm: llm, registry: registry, handle: handle, logger: logger}
}

// Handle exposes the assistant's registry handle.
func (a *Assistant) Handle() *mcp.AgentContext { return a.handle }

// AppointmentNote generates the message for an appointment event.
func (a *Assistant) AppointmentNote(ctx context.Context, kind scheduler.NoteKind, appt *scheduler.Appointment) (string, error) {
	prompt, err := appointmentPrompt(kind, appt)
	if err != nil {
		return "", err
	}

	resp, err := a.llm.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "system", Content: schedulingSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		a.registry.UpdateAgentState(a.handle.ID, mcp.StateError)
		return "", fmt.Errorf("generate %s message: %w", kind, err)
	}

	a.registry.UpdateAgentState(a.handle.ID, mcp.StateReady)
	return resp.Content, nil
}

func appointmentPrompt(kind scheduler.NoteKind, appt *scheduler.Appointment) (string, error) {
	date := appt.Start.Format("Monday, January 2, 2006")
	window := appt.Start.Format("03:04 PM") + " - " + appt.End.Format("03:04 PM")

	switch kind {
	case scheduler.NoteConfirmation:
		return fmt.Sprintf(`Please generate a professional appointment confirmation message with the following details:

Date: %s
Time: %s
Type: %s
Location: %s

Please include:
1. A warm greeting
2. Appointment details
3. What to bring/prepare
4. Contact information for questions`, date, window, appt.Type, appt.Location), nil

	case scheduler.NoteReschedule:
		return fmt.Sprintf(`Please generate a professional appointment rescheduling confirmation with the following details:

New Date: %s
New Time: %s
Type: %s
Location: %s

Please include:
1. A polite acknowledgment of the change
2. New appointment details
3. Confirmation request
4. Contact information for questions`, date, window, appt.Type, appt.Location), nil

	case scheduler.NoteCancellation:
		return fmt.Sprintf(`Please generate a professional appointment cancellation message for:

Date: %s
Time: %s
Type: %s

Please include:
1. A polite acknowledgment of the cancellation
2. Option to reschedule
3. Contact information for questions`, date, window, appt.Type), nil

	case scheduler.NoteReminder:
		return fmt.Sprintf(`Please generate a friendly reminder message for an upcoming appointment:

Date: %s
Time: %s
Type: %s
Location: %s

Please include:
1. A friendly reminder greeting
2. Appointment details
3. Any preparation instructions
4. Contact information`, date, window, appt.Type, appt.Location), nil
	}
	return "", fmt.Errorf("unknown note kind %q", kind)
}
