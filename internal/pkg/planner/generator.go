package planner

import (
	"context"
	"errors"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/planflowhq/planflow/internal/pkg/env"
)

// TokenStream yields generated text deltas until io.EOF.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// Generator produces lesson documents and hook suggestions.
type Generator interface {
	StreamLesson(ctx context.Context, prompt, state string) (TokenStream, error)
	GenerateHooks(ctx context.Context, topic, grade string) (*ViralHooks, error)
}

var ErrNotConfigured = errors.New("planner: OPENAI_API_KEY is not set")

type openaiGenerator struct {
	client *openai.Client
	model  string
}

// NewGenerator builds the OpenAI-backed generator from the environment.
func NewGenerator() (Generator, error) {
	apiKey := env.GetEnv("OPENAI_API_KEY", "")
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	model := env.GetEnv("OPENAI_MODEL", openai.GPT4o)
	return &openaiGenerator{client: openai.NewClient(apiKey), model: model}, nil
}

func (g *openaiGenerator) StreamLesson(ctx context.Context, prompt, state string) (TokenStream, error) {
	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: lessonSystemPrompt(StandardsFramework(state))},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}
	return &openaiStream{stream: stream}, nil
}

func (g *openaiGenerator) GenerateHooks(ctx context.Context, topic, grade string) (*ViralHooks, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: hooksSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: hooksUserPrompt(topic, grade)},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("planner: empty completion response")
	}
	return ParseViralHooks([]byte(resp.Choices[0].Message.Content))
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		return delta, nil
	}
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}

// Collect drains a token stream, calling emit for every delta, and on clean
// completion parses and validates the accumulated document. emit returning an
// error aborts the stream (client went away); nothing is parsed in that case.
func Collect(stream TokenStream, emit func(delta string) error) (*LessonContent, []byte, error) {
	var buf []byte
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		buf = append(buf, delta...)
		if emit != nil {
			if err := emit(delta); err != nil {
				return nil, nil, err
			}
		}
	}
	content, err := ParseLessonContent(buf)
	if err != nil {
		return nil, buf, err
	}
	return content, buf, nil
}
