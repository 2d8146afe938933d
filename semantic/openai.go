// Package semantic implements the AI comparison contract used by the match
// pipeline's third tier.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/mmdatafocus/quoting_backend/workflow"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultModel = "gpt-4o-mini"
const compareTimeout = 8 * time.Second

// Matcher compares an extracted candidate against a library entry through
// the OpenAI chat API and reports a confidence plus free-text reasoning.
type Matcher struct {
	client openai.Client
	model  string
}

func NewMatcher() (*Matcher, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("openai: OPENAI_API_KEY not configured")
	}
	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = defaultModel
	}
	return &Matcher{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

type comparePayload struct {
	Candidate struct {
		Name           string `json:"name"`
		Manufacturer   string `json:"manufacturer"`
		ManufacturerPN string `json:"manufacturer_pn"`
		Notes          string `json:"notes,omitempty"`
	} `json:"candidate"`
	LibraryEntry struct {
		Name           string `json:"name"`
		Manufacturer   string `json:"manufacturer"`
		ManufacturerPN string `json:"manufacturer_pn"`
		Description    string `json:"description,omitempty"`
	} `json:"library_entry"`
}

type compareVerdict struct {
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

const compareSystemPrompt = "You are an industrial-components matching assistant. " +
	"Given an extracted candidate part and an existing library part, judge whether they are the same physical component. " +
	"Return ONLY valid JSON with keys: confidence (number 0-1), reasoning (string, one sentence)."

// Compare implements workflow.SemanticMatcher.
func (m *Matcher) Compare(ctx context.Context, candidate workflow.CandidateComponent, entry models.Component) (workflow.SemanticResult, error) {

	ctx, cancel := context.WithTimeout(ctx, compareTimeout)
	defer cancel()

	var payload comparePayload
	payload.Candidate.Name = candidate.Name
	payload.Candidate.Manufacturer = candidate.Manufacturer
	payload.Candidate.ManufacturerPN = candidate.ManufacturerPN
	payload.Candidate.Notes = candidate.Notes
	payload.LibraryEntry.Name = entry.Name
	payload.LibraryEntry.Manufacturer = entry.Manufacturer
	payload.LibraryEntry.ManufacturerPN = entry.ManufacturerPN
	payload.LibraryEntry.Description = entry.Description

	body, _ := json.Marshal(payload)

	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: m.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(compareSystemPrompt),
			openai.UserMessage("Input JSON:\n" + string(body)),
		},
	})
	if err != nil {
		return workflow.SemanticResult{}, fmt.Errorf("openai: compare: %w", err)
	}
	if len(resp.Choices) == 0 {
		return workflow.SemanticResult{}, fmt.Errorf("openai: compare: empty response")
	}

	var verdict compareVerdict
	if err := decodeJSON(resp.Choices[0].Message.Content, &verdict); err != nil {
		return workflow.SemanticResult{}, fmt.Errorf("openai: parse verdict: %w", err)
	}

	return workflow.SemanticResult{
		Confidence: clamp01(verdict.Confidence),
		Reasoning:  verdict.Reasoning,
	}, nil
}

// decodeJSON tolerates markdown code fences around the model output.
func decodeJSON(s string, dest interface{}) error {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return json.Unmarshal([]byte(strings.TrimSpace(s)), dest)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
