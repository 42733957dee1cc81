package llm

import "context"

// Question 单轮提问
type Question struct {
	Content string
}

// Answer carries the text and the token usage reported by the backend.
type Answer struct {
	Content     string
	InputToken  int
	OutputToken int
}

type Session interface {
	Ask(ctx context.Context, q Question) (Answer, error)
}

type Service interface {
	AskOnce(ctx context.Context, q Question) (Answer, error)
	BeginChat(ctx context.Context) (Session, error)
}
