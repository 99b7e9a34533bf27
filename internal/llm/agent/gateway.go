// Package agent implements llm.Gateway on top of the ADK agent runner: one
// llmagent per prompt, its system role as the agent instruction.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/muhammadolammi/jobrecommender/internal/errs"
	"github.com/muhammadolammi/jobrecommender/internal/llm"
)

const (
	AppName      = "job_recommender"
	DefaultModel = "gemini-2.5-flash"
	userID       = "recommender"
)

// Gateway runs every completion in a fresh in-memory session that is
// deleted afterwards, so no conversation state leaks between runs.
type Gateway struct {
	model    model.LLM
	sessions session.Service

	mu      sync.Mutex
	runners map[string]*runner.Runner
}

var _ llm.Gateway = (*Gateway)(nil)

// New builds the gemini model shared by all prompt agents.
func New(ctx context.Context, apiKey, modelName string) (*Gateway, error) {
	if apiKey == "" {
		return nil, errs.Configuration("GOOGLE_API_KEY")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	m, err := gemini.NewModel(ctx, modelName, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %v", err)
	}
	return NewWithModel(m), nil
}

// NewWithModel uses an already constructed model.
func NewWithModel(m model.LLM) *Gateway {
	return &Gateway{
		model:    m,
		sessions: session.InMemoryService(),
		runners:  make(map[string]*runner.Runner),
	}
}

func agentName(p llm.Prompt) string {
	return "resume_" + p.Name
}

func (g *Gateway) runnerFor(p llm.Prompt) (*runner.Runner, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.runners[p.Name]; ok {
		return r, nil
	}
	a, err := llmagent.New(llmagent.Config{
		Name:        agentName(p),
		Model:       g.model,
		Description: "Resume " + p.Name,
		Instruction: p.System,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %v", err)
	}
	r, err := runner.New(runner.Config{
		AppName:        AppName,
		Agent:          a,
		SessionService: g.sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %v", err)
	}
	g.runners[p.Name] = r
	return r, nil
}

func (g *Gateway) Complete(ctx context.Context, p llm.Prompt, vars map[string]string) (string, error) {
	msg, err := p.Render(vars)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrGateway, err)
	}
	r, err := g.runnerFor(p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrGateway, err)
	}

	created, err := g.sessions.Create(ctx, &session.CreateRequest{
		AppName:   AppName,
		UserID:    userID,
		SessionID: uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to create session: %v", errs.ErrGateway, err)
	}
	defer g.sessions.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
		AppName:   AppName,
		UserID:    created.Session.UserID(),
		SessionID: created.Session.ID(),
	})

	stream := r.Run(ctx, created.Session.UserID(), created.Session.ID(), &genai.Content{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: msg},
		},
	}, agent.RunConfig{})

	var output string
	for event, err := range stream {
		if err != nil {
			return "", fmt.Errorf("%w: agent %s: %w", errs.ErrGateway, p.Name, err)
		}
		if event != nil && event.IsFinalResponse() && event.Content != nil && len(event.Content.Parts) > 0 {
			output = event.Content.Parts[0].Text
		}
	}

	output = strings.TrimSpace(output)
	if output == "" {
		return "", fmt.Errorf("%w: agent %s returned an empty response", errs.ErrGateway, p.Name)
	}
	return output, nil
}
