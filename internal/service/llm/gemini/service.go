package gemini

import (
	"context"
	"strings"

	"github.com/KNICEX/quantflow/internal/service/llm"
	"github.com/google/generative-ai-go/genai"
)

const defaultModel = "gemini-2.0-flash"

type Session struct {
	session *genai.ChatSession
}

func (s Session) Ask(ctx context.Context, q llm.Question) (llm.Answer, error) {
	resp, err := s.session.SendMessage(ctx, genai.Text(q.Content))
	if err != nil {
		return llm.Answer{}, err
	}
	return toAnswer(resp), nil
}

type Service struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

var _ llm.Service = (*Service)(nil)

func NewService(client *genai.Client, opts ...Option) llm.Service {
	svc := &Service{
		client: client,
		model:  client.GenerativeModel(defaultModel),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type Option func(service *Service)

// WithModel 需要放在其他 option 之前, 会重建 model
func WithModel(name string) Option {
	return func(service *Service) {
		service.model = service.client.GenerativeModel(name)
	}
}

func WithTemperature(temp float32) Option {
	return func(service *Service) {
		service.model.SetTemperature(temp)
	}
}

func WithSystemInstruction(text string) Option {
	return func(service *Service) {
		service.model.SystemInstruction = genai.NewUserContent(genai.Text(text))
	}
}

func (s *Service) AskOnce(ctx context.Context, q llm.Question) (llm.Answer, error) {
	resp, err := s.model.GenerateContent(ctx, genai.Text(q.Content))
	if err != nil {
		return llm.Answer{}, err
	}
	return toAnswer(resp), nil
}

func (s *Service) BeginChat(ctx context.Context) (llm.Session, error) {
	session := s.model.StartChat()
	return &Session{
		session: session,
	}, nil
}

func toAnswer(resp *genai.GenerateContentResponse) llm.Answer {
	ans := llm.Answer{Content: parseResponse(resp)}
	if resp.UsageMetadata != nil {
		ans.InputToken = int(resp.UsageMetadata.PromptTokenCount)
		ans.OutputToken = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return ans
}

func parseResponse(resp *genai.GenerateContentResponse) string {
	var resStr strings.Builder
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	for i, part := range resp.Candidates[0].Content.Parts {
		text, ok := part.(genai.Text)
		if !ok {
			continue
		}
		if i > 0 {
			resStr.WriteString("\n")
		}
		resStr.WriteString(string(text))
	}
	return resStr.String()
}
