package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
)

const anthropicMaxTokens = 4096

// objectToolName is the forced tool used for structured output. The model
// "calls" it with arguments matching the requested schema; the arguments
// are the object.
const objectToolName = "emit_object"

// AnthropicBackend implements text and structured output on the official
// client. Structured output rides the tool-use channel with a forced tool
// choice rather than an in-prompt schema.
type AnthropicBackend struct {
	client anthropic.Client
}

func NewAnthropicBackend(apiKey string) *AnthropicBackend {
	return &AnthropicBackend{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

func (b *AnthropicBackend) Name() string { return "anthropic" }

func (b *AnthropicBackend) GenerateText(ctx context.Context, model string, prompt Prompt) (string, error) {
	params, err := b.buildParams(model, prompt)
	if err != nil {
		return "", err
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", wrapAnthropicError(err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			if text != "" {
				text += "\n"
			}
			text += block.AsText().Text
		}
	}
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (b *AnthropicBackend) GenerateRawObject(ctx context.Context, model string, prompt Prompt, schema map[string]any) (string, error) {
	params, err := b.buildParams(model, prompt)
	if err != nil {
		return "", err
	}

	inputSchema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
	if properties, ok := schema["properties"]; ok {
		inputSchema.Properties = properties
	}
	if required, ok := schema["required"].([]string); ok {
		inputSchema.Required = required
	}
	params.Tools = []anthropic.ToolUnionParam{anthropic.ToolUnionParamOfTool(inputSchema, objectToolName)}
	params.ToolChoice = anthropic.ToolChoiceUnionParam{
		OfTool: &anthropic.ToolChoiceToolParam{Name: objectToolName},
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", wrapAnthropicError(err)
	}

	for _, block := range resp.Content {
		if block.Type != "tool_use" {
			continue
		}
		toolBlock := block.AsToolUse()
		raw, err := json.Marshal(toolBlock.Input)
		if err != nil {
			return "", &InvalidResponseError{Provider: b.Name(), Reason: "tool input is not valid JSON"}
		}
		return string(raw), nil
	}
	return "", ErrEmptyResponse
}

func (b *AnthropicBackend) buildParams(model string, prompt Prompt) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: anthropicMaxTokens,
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: prompt.System}}
	}

	for _, msg := range prompt.Messages {
		blocks, err := b.buildBlocks(msg.Parts)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		if len(blocks) == 0 {
			continue
		}
		if msg.Role == RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(blocks...))
		}
	}
	return params, nil
}

func (b *AnthropicBackend) buildBlocks(parts []Part) ([]anthropic.ContentBlockParamUnion, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, part := range parts {
		switch p := part.(type) {
		case TextPart:
			blocks = append(blocks, anthropic.NewTextBlock(p.Text))
		case ImagePart:
			switch p.Source.Kind {
			case SourceURL:
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfImage: &anthropic.ImageBlockParam{
						Source: anthropic.ImageBlockParamSourceUnion{
							OfURL: &anthropic.URLImageSourceParam{URL: p.Source.URL},
						},
					},
				})
			case SourceBase64:
				blocks = append(blocks, anthropic.NewImageBlockBase64(p.MediaType, string(p.Source.Data)))
			case SourceBytes:
				encoded := base64.StdEncoding.EncodeToString(p.Source.Data)
				blocks = append(blocks, anthropic.NewImageBlockBase64(p.MediaType, encoded))
			}
		case FilePart:
			return nil, fmt.Errorf("anthropic backend does not accept file parts")
		}
	}
	return blocks, nil
}

func wrapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &TransportError{Provider: "anthropic", Status: apiErr.StatusCode, Cause: err}
	}
	return &TransportError{Provider: "anthropic", Cause: err}
}
