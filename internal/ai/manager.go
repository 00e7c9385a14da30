package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const DefaultLanguage = "English"

const defaultSystemPrompt = "You are an assistant that explains ANY type of document " +
	"(government, school, legal, medical, immigration, benefits, or general letters) " +
	"in simple, clear, and practical language.\n\n" +
	"Rules:\n" +
	"- Summarize the key message\n" +
	"- Explain what it means for the person\n" +
	"- Clearly state what they should do next (if anything)\n" +
	"- Avoid unnecessary background or definitions\n" +
	"- Be concise and helpful\n"

// LanguagePrompt is the instruction used for pasted text ingestion.
func LanguagePrompt(language string) string {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	return fmt.Sprintf("You explain government, school, and official documents in very simple, clear language. Always respond in %s.", language)
}

type ManagerConfig struct {
	Timeout            int
	Temperature        float32
	MaxHistoryMessages int
}

type Manager struct {
	chatter IChatter
	cfg     ManagerConfig
}

func NewManager(chatter IChatter, cfg ManagerConfig) *Manager {
	return &Manager{chatter: chatter, cfg: cfg}
}

// Explain summarizes a document. An empty systemPrompt selects the default
// document-explainer instruction in DefaultLanguage; a caller supplied prompt
// is sent as is and carries its own output language.
func (m *Manager) Explain(ctx context.Context, text string, systemPrompt string) (string, error) {
	if systemPrompt == "" {
		systemPrompt = withLanguage(defaultSystemPrompt, DefaultLanguage)
	}
	return m.chat(ctx, ChatRequest{
		System: systemPrompt,
		Prompt: "Explain the following document:\n" + text,
	})
}

// Answer replies to a follow-up question given the prior conversation.
func (m *Manager) Answer(ctx context.Context, question string, history []Message) (string, error) {
	return m.chat(ctx, ChatRequest{
		System:  withLanguage(defaultSystemPrompt, DefaultLanguage),
		History: TrimHistory(history, m.cfg.MaxHistoryMessages),
		Prompt:  question,
	})
}

func (m *Manager) chat(ctx context.Context, req ChatRequest) (string, error) {
	if m.chatter == nil {
		return "", ErrUnavailable
	}
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	req.Temperature = m.cfg.Temperature
	resp, err := m.chatter.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

// TrimHistory bounds the history sent to the model. The first message (the
// document explanation) is always kept, followed by the most recent turns.
// max <= 0 means unbounded.
func TrimHistory(history []Message, max int) []Message {
	if max <= 0 || len(history) <= max {
		return history
	}
	if max == 1 {
		return history[:1]
	}
	out := make([]Message, 0, max)
	out = append(out, history[0])
	return append(out, history[len(history)-(max-1):]...)
}

func withLanguage(prompt, language string) string {
	return prompt + "\n\nOutput language: " + language + "."
}
