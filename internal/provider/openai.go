package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackend implements text, structured output, and batch embedding on
// the official client. Structured output is enforced in-prompt: the schema
// travels in the system text and the reply is fence-stripped before parsing.
type OpenAIBackend struct {
	client openai.Client
}

func NewOpenAIBackend(apiKey string) *OpenAIBackend {
	return &OpenAIBackend{client: openai.NewClient(option.WithAPIKey(apiKey))}
}

func (b *OpenAIBackend) Name() string { return "openai" }

func (b *OpenAIBackend) GenerateText(ctx context.Context, model string, prompt Prompt) (string, error) {
	messages, err := b.buildMessages(prompt, "")
	if err != nil {
		return "", err
	}
	return b.complete(ctx, model, messages)
}

func (b *OpenAIBackend) GenerateRawObject(ctx context.Context, model string, prompt Prompt, schema map[string]any) (string, error) {
	instruction, err := objectInstruction(schema)
	if err != nil {
		return "", err
	}
	messages, err := b.buildMessages(prompt, instruction)
	if err != nil {
		return "", err
	}
	return b.complete(ctx, model, messages)
}

func (b *OpenAIBackend) complete(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	})
	if err != nil {
		return "", wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *OpenAIBackend) EmbedBatch(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	resp, err := b.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
	})
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, &InvalidResponseError{
			Provider: b.Name(),
			Reason:   fmt.Sprintf("embedding API returned %d vectors for %d inputs", len(resp.Data), len(inputs)),
		}
	}

	data := make([]openai.Embedding, len(resp.Data))
	copy(data, resp.Data)
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, item := range data {
		vector := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vector[j] = float32(v)
		}
		vectors[i] = vector
	}
	return vectors, nil
}

func (b *OpenAIBackend) buildMessages(prompt Prompt, systemSuffix string) ([]openai.ChatCompletionMessageParamUnion, error) {
	var messages []openai.ChatCompletionMessageParamUnion

	system := prompt.System
	if systemSuffix != "" {
		if system != "" {
			system += "\n\n"
		}
		system += systemSuffix
	}
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}

	for _, msg := range prompt.Messages {
		if msg.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(msg.TextOf()))
			continue
		}

		if textOnly(msg.Parts) {
			messages = append(messages, openai.UserMessage(msg.TextOf()))
			continue
		}

		parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case TextPart:
				parts = append(parts, openai.TextContentPart(p.Text))
			case ImagePart:
				url, err := imageURL(p)
				if err != nil {
					return nil, err
				}
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
			case FilePart:
				data, err := inlineData(p.Source)
				if err != nil {
					return nil, err
				}
				parts = append(parts, openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
					FileData: openai.String(fmt.Sprintf("data:%s;base64,%s", p.MediaType, data)),
					Filename: openai.String(p.Filename),
				}))
			}
		}
		messages = append(messages, openai.UserMessage(parts))
	}

	return messages, nil
}

func textOnly(parts []Part) bool {
	for _, p := range parts {
		if _, ok := p.(TextPart); !ok {
			return false
		}
	}
	return true
}

func imageURL(p ImagePart) (string, error) {
	switch p.Source.Kind {
	case SourceURL:
		return p.Source.URL, nil
	default:
		data, err := inlineData(p.Source)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("data:%s;base64,%s", p.MediaType, data), nil
	}
}

// inlineData normalizes a non-URL source to base64 text.
func inlineData(s Source) (string, error) {
	switch s.Kind {
	case SourceBase64:
		return string(s.Data), nil
	case SourceBytes:
		return base64.StdEncoding.EncodeToString(s.Data), nil
	default:
		return "", fmt.Errorf("source kind %q cannot be inlined", s.Kind)
	}
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &TransportError{Provider: "openai", Status: apiErr.StatusCode, Cause: err}
	}
	return &TransportError{Provider: "openai", Cause: err}
}
