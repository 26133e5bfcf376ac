// Package gemini adapts the Google Generative Language API to ai.Model.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	genai "google.golang.org/api/generativelanguage/v1beta"
	goption "google.golang.org/api/option"

	"pinledger/internal/ai"
	"pinledger/internal/core"
)

const DefaultModel = "gemini-2.5-flash"

// mapsHost marks grounding sources that point at a map listing.
const mapsHost = "google.com/maps"

type Client struct {
	svc     *genai.Service
	model   string
	timeout time.Duration
}

var _ ai.Model = (*Client)(nil)

// New creates a client authenticated by API key. Extra options are passed
// to the underlying service, e.g. an endpoint override in tests.
func New(ctx context.Context, apiKey, model string, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	if model == "" {
		model = DefaultModel
	}
	opts = append([]goption.ClientOption{goption.WithAPIKey(apiKey)}, opts...)
	svc, err := genai.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("generative language service: %w", err)
	}
	return &Client{svc: svc, model: model, timeout: 30 * time.Second}, nil
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Generate(ctx context.Context, p ai.Prompt) (ai.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	parts := make([]*genai.Part, 0, 2)
	if p.Image != nil {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{
			MimeType: p.Image.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(p.Image.Data),
		}})
	}
	parts = append(parts, &genai.Part{Text: p.Text})

	req := &genai.GenerateContentRequest{
		Contents: []*genai.Content{{Role: "user", Parts: parts}},
	}
	if p.System != "" {
		req.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: p.System}}}
	}
	if p.Grounded {
		req.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if p.JSON {
		req.GenerationConfig = &genai.GenerationConfig{ResponseMimeType: "application/json"}
	}

	resp, err := c.svc.Models.GenerateContent("models/"+c.model, req).Context(ctx).Do()
	if err != nil {
		return ai.Completion{}, fmt.Errorf("generate content: %w", err)
	}
	return completion(resp), nil
}

// completion joins the text parts of the first candidate and collects its
// grounding links. Map listings come first.
func completion(resp *genai.GenerateContentResponse) ai.Completion {
	var out ai.Completion
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return out
	}
	cand := resp.Candidates[0]
	if cand.Content != nil {
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
		out.Text = b.String()
	}
	if cand.GroundingMetadata == nil {
		return out
	}
	var maps, other []core.PlaceLink
	for _, chunk := range cand.GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.Uri == "" {
			continue
		}
		link := core.PlaceLink{Title: chunk.Web.Title, URI: chunk.Web.Uri}
		if strings.Contains(link.URI, mapsHost) {
			if link.Title == "" {
				link.Title = "View on Google Maps"
			}
			maps = append(maps, link)
			continue
		}
		if link.Title == "" {
			link.Title = link.URI
		}
		other = append(other, link)
	}
	out.Links = append(maps, other...)
	return out
}
