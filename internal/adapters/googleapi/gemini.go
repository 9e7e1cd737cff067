package googleapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const receiptPrompt = `You read restaurant receipts. Return ONLY a JSON object, no prose, with:
{"merchant": string, "currency": ISO code,
 "items": [{"name": string, "unitPrice": number, "quantity": integer, "totalPrice": number,
            "subItems": [{"name": string, "unitPrice": number}]}],
 "subtotal": number, "tax": number, "tip": number, "total": number}
Use numbers without currency symbols. Omit fields you cannot read.`

// Gemini extracts structured receipts from photos with the Gemini REST API.
type Gemini struct {
	c     *client
	model string
}

func NewGemini(base, key, model string, rps int) (*Gemini, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	c := newClient("gemini", base, rps, 60*time.Second)
	c.header.Set("x-goog-api-key", key)
	return &Gemini{c: c, model: model}, nil
}

func (g *Gemini) ExtractReceipt(ctx context.Context, image []byte, mimeType string) (map[string]any, error) {
	if len(image) == 0 {
		return nil, errors.New("empty image")
	}
	payload := map[string]any{
		"contents": []map[string]any{{
			"parts": []map[string]any{
				{"text": receiptPrompt},
				{"inline_data": map[string]string{
					"mime_type": mimeType,
					"data":      base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
		"generationConfig": map[string]any{
			"temperature":      0.1,
			"responseMimeType": "application/json",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.c.base, g.model)
	if err := g.c.do(ctx, "POST", "generateContent", u, body, &result); err != nil {
		return nil, err
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("empty gemini response")
	}

	text := stripFences(result.Candidates[0].Content.Parts[0].Text)
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("gemini returned non-json output: %w", err)
	}
	return out, nil
}

// stripFences removes a ```json ... ``` wrapper some models add anyway.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
