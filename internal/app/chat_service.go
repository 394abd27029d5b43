package app

import (
	"context"
	"log/slog"
	"strings"

	"ragchat/internal/ai"
	"ragchat/internal/model"
	"ragchat/internal/repository"
	"ragchat/internal/vecstore"
)

// plainContextWindow is how many trailing messages feed a completion when the
// session has no document index.
const plainContextWindow = 4

// AsyncMessagePublisher hands messages to the persist queue. When nil, the
// chat service writes rows synchronously instead.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

// ChatService routes each chat turn: retrieval-augmented generation when the
// session has a persisted vector index, plain context-window completion
// otherwise.
type ChatService struct {
	sessionRepo  *repository.SessionRepository
	messageRepo  *repository.MessageRepository
	vecStore     *vecstore.Store
	embedder     ai.Embedder
	completer    ai.Completer
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	topK         int
	fetchK       int
	logger       *slog.Logger
}

func NewChatService(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	vecStore *vecstore.Store,
	embedder ai.Embedder,
	completer ai.Completer,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	topK, fetchK int,
	logger *slog.Logger,
) *ChatService {
	if topK <= 0 {
		topK = 1
	}
	if fetchK < topK {
		fetchK = topK * 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		vecStore:     vecStore,
		embedder:     embedder,
		completer:    completer,
		publisher:    publisher,
		historyCache: historyCache,
		topK:         topK,
		fetchK:       fetchK,
		logger:       logger,
	}
}

// QAPair is one prior exchange, user question first.
type QAPair struct {
	Question string
	Answer   string
}

type GenerateResult struct {
	Answer  string          `json:"answer"`
	Sources []vecstore.Chunk `json:"sources,omitempty"`
}

// GenerateText runs one chat turn and persists both sides of it.
func (s *ChatService) GenerateText(ctx context.Context, sessionID, question string) (*GenerateResult, error) {
	question = strings.TrimSpace(question)
	if sessionID == "" || question == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	history, err := s.messageRepo.ListBySessionID(sessionID)
	if err != nil {
		return nil, err
	}

	var result *GenerateResult
	if s.vecStore.IndexExists(sessionID) {
		result, err = s.answerWithRetrieval(ctx, sessionID, question, history)
	} else {
		result, err = s.answerFromContext(ctx, question, history)
	}
	if err != nil {
		return nil, err
	}

	if err := s.persistTurn(ctx, sessionID, question, result.Answer); err != nil {
		return nil, err
	}
	return result, nil
}

// answerWithRetrieval is the conversational chain: one MMR-selected chunk plus
// the prior exchanges plus the new question, in a single prompt.
func (s *ChatService) answerWithRetrieval(ctx context.Context, sessionID, question string, history []model.Message) (*GenerateResult, error) {
	index, err := s.vecStore.Load(sessionID)
	if err != nil {
		return nil, err
	}

	queryVec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	sources := index.SearchMMR(queryVec, s.topK, s.fetchK)

	prompt := buildRetrievalPrompt(sources, pairHistory(history), question)
	answer, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &GenerateResult{Answer: answer, Sources: sources}, nil
}

// answerFromContext concatenates the last few raw messages, oldest first, and
// prepends them to the question.
func (s *ChatService) answerFromContext(ctx context.Context, question string, history []model.Message) (*GenerateResult, error) {
	start := len(history) - plainContextWindow
	if start < 0 {
		start = 0
	}
	var sb strings.Builder
	for _, msg := range history[start:] {
		sb.WriteString(msg.Text)
		sb.WriteString("\n")
	}
	sb.WriteString(question)

	answer, err := s.completer.Complete(ctx, sb.String())
	if err != nil {
		return nil, err
	}
	return &GenerateResult{Answer: answer}, nil
}

func (s *ChatService) persistTurn(ctx context.Context, sessionID, question, answer string) error {
	userMsg := model.Message{SessionID: sessionID, Sender: model.SenderUser, Text: question}
	llmMsg := model.Message{SessionID: sessionID, Sender: model.SenderLLM, Text: answer}

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, sessionID)
		_ = s.historyCache.DeleteHistory(ctx, sessionID)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, userMsg); err != nil {
			return err
		}
		return s.publisher.Publish(ctx, llmMsg)
	}
	if err := s.messageRepo.Create(&userMsg); err != nil {
		return err
	}
	return s.messageRepo.Create(&llmMsg)
}

// pairHistory pairs each user message with the assistant message that
// immediately follows it. Unanswered questions are dropped.
func pairHistory(history []model.Message) []QAPair {
	var pairs []QAPair
	for i := 0; i < len(history)-1; i++ {
		if history[i].Sender == model.SenderUser && history[i+1].Sender == model.SenderLLM {
			pairs = append(pairs, QAPair{Question: history[i].Text, Answer: history[i+1].Text})
			i++
		}
	}
	return pairs
}

func buildRetrievalPrompt(sources []vecstore.Chunk, pairs []QAPair, question string) string {
	var sb strings.Builder
	sb.WriteString("Use the following context to answer the question at the end.\n\nContext:\n")
	for _, src := range sources {
		sb.WriteString(src.Content)
		sb.WriteString("\n")
	}
	if len(pairs) > 0 {
		sb.WriteString("\nChat history:\n")
		for _, p := range pairs {
			sb.WriteString("Human: ")
			sb.WriteString(p.Question)
			sb.WriteString("\nAssistant: ")
			sb.WriteString(p.Answer)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:")
	return sb.String()
}
