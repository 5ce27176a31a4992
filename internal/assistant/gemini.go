package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient implements LLMClient using Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("assistant: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("assistant: failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, modelID: modelID}, nil
}

// Complete sends the conversation to Gemini and returns its text or tool calls.
func (c *GeminiClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	modelID := c.modelID
	if strings.TrimSpace(req.Model) != "" {
		modelID = req.Model
	}
	model := c.client.GenerativeModel(modelID)

	if req.Temperature >= 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}
	if systemText := strings.TrimSpace(strings.Join(req.System, "\n\n")); systemText != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(systemText))
	}
	model.Tools = geminiTools(req.Tools)

	history, last, err := geminiContents(req.Messages)
	if err != nil {
		return LLMResponse{}, err
	}

	cs := model.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, last...)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("assistant: gemini completion failed: %w", err)
	}
	return geminiResponse(resp)
}

// Close releases resources held by the Gemini client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func geminiTools(specs []ToolSpec) []*genai.Tool {
	if len(specs) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  geminiSchema(spec.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func geminiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        geminiType(s.Type),
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = geminiSchema(prop)
		}
	}
	return out
}

func geminiType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

// geminiContents splits messages into chat history and the parts of the
// final turn, which must come from the user or carry tool results.
func geminiContents(msgs []Message) ([]*genai.Content, []genai.Part, error) {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		var parts []genai.Part
		role := "user"
		switch msg.Role {
		case RoleUser:
			if text := strings.TrimSpace(msg.Content); text != "" {
				parts = append(parts, genai.Text(text))
			}
		case RoleAssistant:
			role = "model"
			if text := strings.TrimSpace(msg.Content); text != "" {
				parts = append(parts, genai.Text(text))
			}
			for _, call := range msg.ToolCalls {
				args, err := jsonObject(call.Args)
				if err != nil {
					return nil, nil, fmt.Errorf("assistant: decode args for %s: %w", call.Name, err)
				}
				parts = append(parts, genai.FunctionCall{Name: call.Name, Args: args})
			}
		case RoleTool:
			for _, res := range msg.ToolResults {
				body, err := jsonObject(res.Content)
				if err != nil {
					return nil, nil, fmt.Errorf("assistant: decode result for %s: %w", res.Name, err)
				}
				parts = append(parts, genai.FunctionResponse{Name: res.Name, Response: body})
			}
		default:
			continue
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	if len(contents) == 0 {
		return nil, nil, errors.New("assistant: gemini requires at least one message")
	}
	last := contents[len(contents)-1]
	if last.Role != "user" {
		return nil, nil, errors.New("assistant: last message must come from the user")
	}
	return contents[:len(contents)-1], last.Parts, nil
}

func geminiResponse(resp *genai.GenerateContentResponse) (LLMResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return LLMResponse{}, errors.New("assistant: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return LLMResponse{}, errors.New("assistant: gemini returned empty content")
	}

	var text strings.Builder
	var calls []ToolCall
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.FunctionCall:
			call, err := geminiToolCall(p)
			if err != nil {
				return LLMResponse{}, err
			}
			calls = append(calls, call)
		case *genai.FunctionCall:
			call, err := geminiToolCall(*p)
			if err != nil {
				return LLMResponse{}, err
			}
			calls = append(calls, call)
		}
	}

	out := LLMResponse{
		Text:       strings.TrimSpace(text.String()),
		ToolCalls:  calls,
		StopReason: candidate.FinishReason.String(),
	}
	if resp.UsageMetadata != nil {
		out.Usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}

// Gemini function calls carry no id, so one is minted per call.
func geminiToolCall(fc genai.FunctionCall) (ToolCall, error) {
	args := fc.Args
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return ToolCall{}, fmt.Errorf("assistant: encode args for %s: %w", fc.Name, err)
	}
	return ToolCall{ID: uuid.NewString(), Name: fc.Name, Args: raw}, nil
}
