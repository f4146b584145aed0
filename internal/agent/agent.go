// Package agent turns natural-language director notes into workflow edit
// operations using the chat model. The agent only proposes; applying the
// operations stays with the engine.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"recut/internal/edits"
	"recut/internal/logging"
	"recut/internal/services"
	"recut/internal/services/genai"
	"recut/internal/workflow"
)

// Completer abstracts the chat JSON-completion call for testability.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Agent proposes edit operations for chat messages.
type Agent struct {
	client Completer
	logger *slog.Logger
}

// New builds an agent over the given completion client. A nil client is
// allowed; Propose then reports a configuration error, which lets callers
// construct the agent unconditionally and fail only when chat is used.
func New(client Completer, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Agent{client: client, logger: logging.NewComponentLogger(logger, "agent")}
}

// Model op names that exist only in the chat contract, not in the edit
// vocabulary.
const (
	opNone  = "none"
	opError = "error"
)

// Skipped is a directive the model emitted that will not be applied.
type Skipped struct {
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

// Proposal is the agent's decision for one message: operations ready for
// ApplyEdits plus the directives recut declined.
type Proposal struct {
	Ops     []edits.Op
	Skipped []Skipped
}

// Propose asks the chat model to translate message into edit operations
// against the given document. Directives the model flags as none or error,
// unknown operation names, and operations that fail validation are reported
// in Skipped rather than dropped silently.
func (a *Agent) Propose(ctx context.Context, message string, job *workflow.Job) (*Proposal, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, services.Wrap(services.ErrValidation, "agent", "propose edits", "message is required", nil)
	}
	if a.client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "agent", "propose edits",
			"chat model is not configured", nil)
	}

	raw, err := a.client.CompleteJSON(ctx, DirectorAssistantPrompt, userPrompt(job, message))
	if err != nil {
		return nil, services.Wrap(services.ErrGenerator, "agent", "propose edits", "chat completion", err)
	}
	proposal, err := decodeProposal(raw)
	if err != nil {
		return nil, services.Wrap(services.ErrGenerator, "agent", "propose edits", "decode model response", err)
	}

	a.logger.Info("agent proposal",
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("operations", len(proposal.Ops)),
		logging.Int("skipped", len(proposal.Skipped)))
	return proposal, nil
}

// userPrompt pairs the document summary with the user's request. The summary
// carries the shot descriptions so subject swaps can target words that
// actually occur in them.
func userPrompt(job *workflow.Job, message string) string {
	var b strings.Builder
	b.WriteString("Current workflow summary:\n")
	b.WriteString(Summarize(job))
	b.WriteString("\nUser request: ")
	b.WriteString(message)
	return b.String()
}

// Summarize renders the compact document state the model reasons over.
func Summarize(job *workflow.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Style: %s\n", job.Global.StylePrompt)

	ids := make([]string, 0, len(job.Entities))
	for id := range job.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Fprintf(&b, "Entities: [%s]\n", strings.Join(ids, ", "))

	b.WriteString("Shots:\n")
	for _, shot := range job.Shots {
		if shot == nil {
			continue
		}
		fmt.Fprintf(&b, "  %s: %s\n", shot.ID, shot.Description)
	}
	return b.String()
}

type directiveProbe struct {
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

// decodeProposal parses the model payload. The contract asks for an array,
// but a single directive object is tolerated because models return one
// despite instructions often enough.
func decodeProposal(raw string) (*Proposal, error) {
	var batch []json.RawMessage
	if err := genai.DecodeModelJSON(raw, &batch); err != nil {
		var single json.RawMessage
		if singleErr := genai.DecodeModelJSON(raw, &single); singleErr != nil {
			return nil, err
		}
		batch = []json.RawMessage{single}
	}

	proposal := &Proposal{}
	for _, item := range batch {
		var probe directiveProbe
		if err := json.Unmarshal(item, &probe); err != nil {
			proposal.Skipped = append(proposal.Skipped, Skipped{
				Op:     "unknown",
				Reason: "directive is not a JSON object",
			})
			continue
		}
		switch probe.Op {
		case opNone, opError, "":
			reason := strings.TrimSpace(probe.Reason)
			if reason == "" {
				reason = "no applicable operation"
			}
			proposal.Skipped = append(proposal.Skipped, Skipped{Op: displayOp(probe.Op), Reason: reason})
			continue
		}

		op, err := edits.Decode(item)
		if err != nil {
			proposal.Skipped = append(proposal.Skipped, Skipped{
				Op:     probe.Op,
				Reason: fmt.Sprintf("unsupported operation %s", probe.Op),
			})
			continue
		}
		if err := op.Validate(); err != nil {
			proposal.Skipped = append(proposal.Skipped, Skipped{Op: probe.Op, Reason: err.Error()})
			continue
		}
		proposal.Ops = append(proposal.Ops, op)
	}
	return proposal, nil
}

func displayOp(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
