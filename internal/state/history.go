package state

import (
	"strings"

	"go.uber.org/zap"
)

const (
	defaultHistoryMaxMessages = 10
	defaultHistoryMaxTokens   = 2000
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one persisted chat turn. Tool traffic is never stored.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History is a bounded FIFO of chat messages. When a leading system
// message is present it survives every trim.
type History struct {
	messages    []Message
	maxMessages int
	maxTokens   int
	logger      *zap.Logger
}

func NewHistory(messages []Message, maxMessages, maxTokens int, logger *zap.Logger) *History {
	if maxMessages <= 0 {
		maxMessages = defaultHistoryMaxMessages
	}
	if maxTokens <= 0 {
		maxTokens = defaultHistoryMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &History{
		messages:    append([]Message(nil), messages...),
		maxMessages: maxMessages,
		maxTokens:   maxTokens,
		logger:      logger,
	}
	h.enforceLimits()
	return h
}

func (h *History) Append(messages ...Message) {
	h.messages = append(h.messages, messages...)
	h.enforceLimits()
}

func (h *History) Messages() []Message {
	if len(h.messages) == 0 {
		return nil
	}
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *History) Len() int {
	return len(h.messages)
}

func (h *History) Clear() {
	h.messages = nil
}

func (h *History) TokenCount() int {
	return estimateTokens(h.messages)
}

func (h *History) enforceLimits() {
	trimmed := false
	if len(h.messages) > h.maxMessages {
		h.messages = trimByCount(h.messages, h.maxMessages)
		trimmed = true
	}

	for len(h.messages) > 1 && estimateTokens(h.messages) > h.maxTokens {
		h.messages = trimOldestNonSystem(h.messages)
		trimmed = true
	}

	if trimmed {
		h.logger.Debug("history trimmed",
			zap.Int("messages", len(h.messages)),
			zap.Int("tokens", estimateTokens(h.messages)),
		)
	}
}

func trimByCount(messages []Message, max int) []Message {
	if len(messages) <= max {
		return messages
	}
	if max <= 0 {
		return nil
	}
	if messages[0].Role == RoleSystem {
		keep := max - 1
		if keep <= 0 {
			return messages[:1]
		}
		trimmed := make([]Message, 0, max)
		trimmed = append(trimmed, messages[0])
		trimmed = append(trimmed, messages[len(messages)-keep:]...)
		return trimmed
	}
	return append([]Message(nil), messages[len(messages)-max:]...)
}

func trimOldestNonSystem(messages []Message) []Message {
	if len(messages) == 0 {
		return nil
	}
	if messages[0].Role == RoleSystem {
		if len(messages) <= 1 {
			return messages
		}
		return append(messages[:1], messages[2:]...)
	}
	return messages[1:]
}

// estimateTokens approximates tokens by whitespace-separated words.
func estimateTokens(messages []Message) int {
	total := 0
	for _, msg := range messages {
		total += len(strings.Fields(msg.Content))
	}
	return total
}
