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

// ErrTransactionNotFound is returned for unknown transaction ids.
var ErrTransactionNotFound = errors.New("transaction not found")

// Milestone is a dated step in a real estate transaction.
type Milestone struct {
	Name        string     `json:"name"`
	DueDate     time.Time  `json:"due_date"`
	Status      string     `json:"status"`
	Description string     `json:"description,omitempty"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Transaction tracks a purchase from contract to closing.
type Transaction struct {
	ID          string            `json:"transaction_id"`
	Data        map[string]string `json:"data"`
	Milestones  []Milestone       `json:"milestones"`
	Status      string            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	LastUpdated time.Time         `json:"last_updated"`
}

// DraftedDocument is an AI-drafted real estate document.
type DraftedDocument struct {
	Content     string            `json:"content"`
	GeneratedAt time.Time         `json:"generated_at"`
	Metadata    map[string]string `json:"metadata"`
}

// TransactionCoordinator manages transaction milestones and drafts
// documents through the chat-completion provider.
type TransactionCoordinator struct {
	llm          provider.Provider
	registry     *mcp.Registry
	handle       *mcp.AgentContext
	transactions map[string]*Transaction
	now          func() time.Time
	mu           sync.Mutex
	logger       *zap.Logger
}

// NewTransactionCoordinator registers a transaction_coordinator handle.
func NewTransactionCoordinator(llm provider.Provider, registry *mcp.Registry, logger *zap.Logger) *TransactionCoordinator {
	handle := registry.CreateAgent(mcp.TypeTransactionCoordinator, []string{"milestones", "document_drafting"})
	registry.UpdateAgentState(handle.ID, mcp.StateReady)
	return &TransactionCoordinator{
		llm:          llm,
		registry:     registry,
		handle:       handle,
		transactions: make(map[string]*Transaction),
		now:          time.Now,
		logger:       logger,
	}
}

// Handle exposes the coordinator's registry handle.
func (tc *TransactionCoordinator) Handle() *mcp.AgentContext { return tc.handle }

// CreateTransaction opens a transaction with the standard milestone plan.
func (tc *TransactionCoordinator) CreateTransaction(id string, data map[string]string) *Transaction {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	now := tc.now()
	tx := &Transaction{
		ID:          id,
		Data:        data,
		Milestones:  standardMilestones(now),
		Status:      "active",
		CreatedAt:   now,
		LastUpdated: now,
	}
	tc.transactions[id] = tx
	return tx
}

// Transaction returns a transaction by id.
func (tc *TransactionCoordinator) Transaction(id string) (*Transaction, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tx, ok := tc.transactions[id]
	return tx, ok
}

// UpdateMilestone sets a milestone's status, stamping completion time when
// it completes.
func (tc *TransactionCoordinator) UpdateMilestone(id, milestoneName, status string) (*Transaction, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tx, ok := tc.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	for i := range tx.Milestones {
		if tx.Milestones[i].Name == milestoneName {
			tx.Milestones[i].Status = status
			if status == "completed" {
				at := tc.now()
				tx.Milestones[i].CompletedAt = &at
			}
			tx.LastUpdated = tc.now()
			break
		}
	}
	return tx, nil
}

// DraftDocument asks the provider to draft a document for a transaction.
func (tc *TransactionCoordinator) DraftDocument(ctx context.Context, id, documentType string, docCtx map[string]string) (*DraftedDocument, error) {
	tc.mu.Lock()
	_, ok := tc.transactions[id]
	tc.mu.Unlock()
	if !ok {
		return nil, ErrTransactionNotFound
	}

	resp, err := tc.llm.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "system", Content: "You are a real estate document generation expert."},
			{Role: "user", Content: documentPrompt(documentType, docCtx)},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		tc.registry.UpdateAgentState(tc.handle.ID, mcp.StateError)
		return nil, fmt.Errorf("draft %s: %w", documentType, err)
	}
	tc.registry.UpdateAgentState(tc.handle.ID, mcp.StateReady)

	return &DraftedDocument{
		Content:     resp.Content,
		GeneratedAt: tc.now(),
		Metadata:    map[string]string{"format": "text", "type": documentType},
	}, nil
}

func standardMilestones(base time.Time) []Milestone {
	return []Milestone{
		{Name: "Contract Signed", DueDate: base.AddDate(0, 0, 1), Status: "pending",
			Description: "Get purchase agreement signed by all parties"},
		{Name: "Earnest Money Deposited", DueDate: base.AddDate(0, 0, 3), Status: "pending",
			Description: "Ensure earnest money is deposited into escrow"},
		{Name: "Inspection Period", DueDate: base.AddDate(0, 0, 10), Status: "pending",
			Description: "Complete all property inspections"},
		{Name: "Loan Approval", DueDate: base.AddDate(0, 0, 21), Status: "pending",
			Description: "Obtain final loan approval"},
		{Name: "Closing", DueDate: base.AddDate(0, 0, 30), Status: "pending",
			Description: "Complete closing and transfer of property"},
	}
}

func documentPrompt(documentType string, docCtx map[string]string) string {
	get := func(key string) string {
		if v := docCtx[key]; v != "" {
			return v
		}
		return "Not specified"
	}
	return fmt.Sprintf(`Please generate a %s with the following details:

Property Address: %s
Purchase Price: %s
Buyer(s): %s
Seller(s): %s
Closing Date: %s

Additional Terms:
%s

Please format the document according to standard real estate practices in the jurisdiction.`,
		documentType, get("property_address"), get("purchase_price"),
		get("buyers"), get("sellers"), get("closing_date"),
		strings.TrimSpace(docCtx["additional_terms"]))
}
