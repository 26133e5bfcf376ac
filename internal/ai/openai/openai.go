// Package openai adapts any OpenAI-compatible chat completion endpoint to
// ai.Model.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"pinledger/internal/ai"
)

const DefaultModel = goopenai.GPT4oMini

type Client struct {
	api     *goopenai.Client
	model   string
	timeout time.Duration
}

var _ ai.Model = (*Client)(nil)

// New builds a client. An empty baseURL targets api.openai.com.
func New(apiKey, baseURL, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{api: goopenai.NewClientWithConfig(cfg), model: model, timeout: 30 * time.Second}, nil
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Generate(ctx context.Context, p ai.Prompt) (ai.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var msgs []goopenai.ChatCompletionMessage
	if p.System != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: p.System})
	}
	user := goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser}
	if p.Image != nil {
		user.MultiContent = []goopenai.ChatMessagePart{
			{
				Type: goopenai.ChatMessagePartTypeImageURL,
				ImageURL: &goopenai.ChatMessageImageURL{
					URL:    "data:" + p.Image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Image.Data),
					Detail: goopenai.ImageURLDetailAuto,
				},
			},
			{Type: goopenai.ChatMessagePartTypeText, Text: p.Text},
		}
	} else {
		user.Content = p.Text
	}
	msgs = append(msgs, user)

	req := goopenai.ChatCompletionRequest{Model: c.model, Messages: msgs}
	if p.JSON {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return ai.Completion{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ai.Completion{}, ai.ErrEmptyCompletion
	}
	return ai.Completion{Text: resp.Choices[0].Message.Content}, nil
}
