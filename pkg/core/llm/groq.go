package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// GroqProvider calls Groq's OpenAI-compatible chat completions endpoint.
// It is the default provider for the analyst roles: hosted open-weight
// models with enough throughput to keep a full multi-agent run inside the
// response-time budget.
type GroqProvider struct{}

var _ Provider = (*GroqProvider)(nil)

type groqRequest struct {
	Messages       []Message       `json:"messages"`
	Model          string          `json:"model"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *GroqProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := os.Getenv("GROQ_API_KEY")
	if val, ok := options["api_key"].(string); ok && val != "" {
		apiKey = val
	}
	if apiKey == "" {
		return "", fmt.Errorf("GROQ_API_KEY_MISSING: Please set GROQ_API_KEY env var")
	}

	// MODEL overrides the default deployment for every Groq-bound role.
	model := os.Getenv("MODEL")
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	if val, ok := options["model"].(string); ok && val != "" {
		model = val
	}

	reqBody := groqRequest{
		Messages: []Message{
			{Content: systemPrompt, Role: "system"},
			{Content: prompt, Role: "user"},
		},
		Model:       model,
		MaxTokens:   4096,
		Temperature: 0.2,
	}
	if val, ok := options["response_format"].(map[string]interface{}); ok {
		if val["type"] == "json_object" {
			reqBody.ResponseFormat = &ResponseFormat{Type: "json_object"}
		}
	}
	if val, ok := options["max_tokens"].(int); ok && val > 0 {
		reqBody.MaxTokens = val
	}

	jsonBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("GROQ_MARSHAL_ERROR: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.groq.com/openai/v1/chat/completions", bytes.NewBuffer(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("GROQ_REQ_CREATE_ERROR: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GROQ_API_CALL_ERROR: %v", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("GROQ_READ_BODY_ERROR: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GROQ_API_ERROR: status=%d body=%s", res.StatusCode, string(body))
	}

	var response groqResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("GROQ_UNMARSHAL_ERROR: %v", err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("GROQ_API_ERROR: %s (%s)", response.Error.Message, response.Error.Type)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("GROQ_NO_CHOICES: %s", string(body))
	}

	return response.Choices[0].Message.Content, nil
}

func (p *GroqProvider) AdaptInstructions(raw string) string {
	return raw
}
