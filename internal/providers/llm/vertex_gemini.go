package llm

import (
	"context"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"

	"github.com/doccast/doccast/internal/utils"
)

// VertexGemini is the alternative generation backend for deployments that run
// on Google Cloud instead of Azure. The streamed chunks are collected into one
// completion because the script parser needs the whole dialogue at once.
type VertexGemini struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	const op = "llm.NewVertexGemini"
	if projectID == "" {
		return nil, utils.E(utils.CodeConfiguration, op, "project id is required", nil)
	}
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, utils.E(utils.CodeConfiguration, op, "creating vertex client", err)
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	m := c.GenerativeModel(modelName)
	return &VertexGemini{client: c, model: m}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Complete(ctx context.Context, system, prompt string) (string, error) {
	const op = "VertexGemini.Complete"

	if system != "" {
		v.model.SystemInstruction = &vertexgenai.Content{
			Parts: []vertexgenai.Part{vertexgenai.Text(system)},
		}
	}

	var b strings.Builder
	it := v.model.GenerateContentStream(ctx, vertexgenai.Text(prompt))
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", utils.E(utils.CodeTransient, op, "generation stream", err)
		}

		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(vertexgenai.Text); ok {
					b.WriteString(string(t))
				}
			}
		}
	}

	if b.Len() == 0 {
		return "", utils.E(utils.CodeTransient, op, "generation returned no content", nil)
	}
	return b.String(), nil
}
