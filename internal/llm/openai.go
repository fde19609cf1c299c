package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// GeminiBaseURL is Google's OpenAI-compatible endpoint for Gemini models.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

type OpenAIClient struct {
	client *openai.Client
	model  string
}

type headerTransport struct {
	rt      http.RoundTripper
	headers http.Header
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cl := req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return t.rt.RoundTrip(cl)
}

// NewOpenAI talks to any OpenAI-compatible chat endpoint. Referrer and
// title are sent as OpenRouter attribution headers when set.
func NewOpenAI(apiKey, baseURL, model, referrer, title string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if referrer != "" || title != "" {
		h := http.Header{}
		if referrer != "" {
			h.Set("HTTP-Referer", referrer)
		}
		if title != "" {
			h.Set("X-Title", title)
		}
		config.HTTPClient = &http.Client{Transport: headerTransport{rt: http.DefaultTransport, headers: h}}
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != openai.ChatMessageRoleSystem && role != openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleUser
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: oaMsgs,
	})
	if err != nil {
		return Response{}, fmt.Errorf("chat completion: %w", err)
	}

	content, err := decodeReply(resp)
	if err != nil {
		return Response{}, err
	}
	model := resp.Model
	if model == "" {
		model = c.model
	}
	return Response{
		Content:          content,
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// replyShape tags which part of a completion carried the answer.
type replyShape int

const (
	shapeNone replyShape = iota
	shapeText
	shapeParts
	shapeRefusal
)

func shapeOf(resp openai.ChatCompletionResponse) replyShape {
	if len(resp.Choices) == 0 {
		return shapeNone
	}
	msg := resp.Choices[0].Message
	switch {
	case strings.TrimSpace(msg.Content) != "":
		return shapeText
	case len(msg.MultiContent) > 0:
		return shapeParts
	case msg.Refusal != "":
		return shapeRefusal
	default:
		return shapeNone
	}
}

// decodeReply extracts the answer text from the first choice. Anything
// that yields no text is ErrEmptyResponse.
func decodeReply(resp openai.ChatCompletionResponse) (string, error) {
	switch shapeOf(resp) {
	case shapeText:
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	case shapeParts:
		var b strings.Builder
		for _, p := range resp.Choices[0].Message.MultiContent {
			if p.Type != openai.ChatMessagePartTypeText || strings.TrimSpace(p.Text) == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(strings.TrimSpace(p.Text))
		}
		if b.Len() == 0 {
			return "", ErrEmptyResponse
		}
		return b.String(), nil
	case shapeRefusal:
		return "", fmt.Errorf("model refused: %s", resp.Choices[0].Message.Refusal)
	default:
		return "", ErrEmptyResponse
	}
}
