package assistant

import (
	"encoding/json"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(&Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"urgency": {Type: "string", Enum: []string{"low", "high"}},
			"count":   {Type: "integer"},
		},
		Required: []string{"urgency"},
	})
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, genai.TypeString, s.Properties["urgency"].Type)
	assert.Equal(t, []string{"low", "high"}, s.Properties["urgency"].Enum)
	assert.Equal(t, genai.TypeInteger, s.Properties["count"].Type)
	assert.Equal(t, []string{"urgency"}, s.Required)
	assert.Nil(t, geminiSchema(nil))
}

func TestGeminiTools(t *testing.T) {
	assert.Nil(t, geminiTools(nil))

	tools := geminiTools([]ToolSpec{{Name: "a", Description: "first"}, {Name: "b"}})
	require.Len(t, tools, 1)
	require.Len(t, tools[0].FunctionDeclarations, 2)
	assert.Equal(t, "first", tools[0].FunctionDeclarations[0].Description)
}

func TestGeminiContents(t *testing.T) {
	history, last, err := geminiContents([]Message{
		{Role: RoleUser, Content: "chest pain"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: ToolTriagePatient, Args: json.RawMessage(`{"urgency":"high"}`)}}},
		{Role: RoleTool, ToolResults: []ToolResult{{CallID: "1", Name: ToolTriagePatient, Content: json.RawMessage(`{"success":true}`)}}},
	})
	require.NoError(t, err)

	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, []genai.Part{genai.Text("chest pain")}, history[0].Parts)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, []genai.Part{genai.FunctionCall{Name: ToolTriagePatient, Args: map[string]any{"urgency": "high"}}}, history[1].Parts)

	require.Len(t, last, 1)
	assert.Equal(t, genai.FunctionResponse{Name: ToolTriagePatient, Response: map[string]any{"success": true}}, last[0])
}

func TestGeminiContentsSkipsBlankAndRequiresUserLast(t *testing.T) {
	history, last, err := geminiContents([]Message{
		{Role: RoleUser, Content: "  "},
		{Role: "system", Content: "ignored"},
		{Role: RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, []genai.Part{genai.Text("hi")}, last)

	_, _, err = geminiContents([]Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}})
	assert.Error(t, err)

	_, _, err = geminiContents(nil)
	assert.Error(t, err)
}

func TestGeminiResponse(t *testing.T) {
	resp, err := geminiResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []genai.Part{
				genai.Text("Let me check. "),
				genai.FunctionCall{Name: ToolGetClinicRecommendations, Args: map[string]any{"specialty": "Cardiology"}},
			}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 12, CandidatesTokenCount: 4, TotalTokenCount: 16},
	})
	require.NoError(t, err)

	assert.Equal(t, "Let me check.", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, ToolGetClinicRecommendations, resp.ToolCalls[0].Name)
	assert.NotEmpty(t, resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"specialty":"Cardiology"}`, string(resp.ToolCalls[0].Args))
	assert.Equal(t, int32(16), resp.Usage.TotalTokens)

	_, err = geminiResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)
}
