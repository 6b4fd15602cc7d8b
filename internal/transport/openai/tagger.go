package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/convscore/internal/domain"
	domconv "github.com/kailas-cloud/convscore/internal/domain/conversation"
	"github.com/kailas-cloud/convscore/internal/metrics"
)

const defaultMaxTags = 20

const taggingPrompt = `You label conversations with short topical tags.
Return a JSON object {"tags": ["..."]} with at most %d lower-case tags of one to three words each.
Prefer concrete topics, interests and activities mentioned by the participants. Return no other keys.`

// Tagger produces reference tags for a conversation through a chat completion call
// and vectorizes them with the configured embedder chain.
type Tagger struct {
	client   *openai.Client
	model    string
	embedder domain.Embedder
	maxTags  int
	user     string
	provider string
	logger   *zap.Logger
}

// NewTagger creates a tagger. cfg.Model names the chat model; embedder vectorizes the tags.
func NewTagger(cfg *Config, embedder domain.Embedder, maxTags int) *Tagger {
	if maxTags <= 0 {
		maxTags = defaultMaxTags
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tagger{
		client:   newClient(cfg),
		model:    cfg.Model,
		embedder: embedder,
		maxTags:  maxTags,
		user:     cfg.User,
		provider: cfg.Provider,
		logger:   logger,
	}
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

// Annotate implements the orchestrator's annotator. Any provider failure is
// wrapped with domain.ErrAnnotationFailed.
func (t *Tagger) Annotate(ctx context.Context, conv domconv.Conversation) (*domain.Annotation, error) {
	raw, err := t.complete(ctx, domconv.Transcript(conv.Lines()))
	if err != nil {
		return nil, fmt.Errorf("tag conversation %s: %w: %w", conv.GUID(), domain.ErrAnnotationFailed, err)
	}

	tags := domain.NewTagSet(capTags(raw, t.maxTags)...)
	if tags.Len() == 0 {
		return &domain.Annotation{Success: true, Tags: tags, Vectors: domain.Vectors{}}, nil
	}

	sorted := tags.Sorted()
	res, err := domain.EmbedAll(ctx, t.embedder, sorted)
	if err != nil {
		return nil, fmt.Errorf("embed tags of %s: %w: %w", conv.GUID(), domain.ErrAnnotationFailed, err)
	}
	if len(res.Embeddings) != len(sorted) {
		return nil, fmt.Errorf("embed tags of %s: got %d vectors for %d tags: %w",
			conv.GUID(), len(res.Embeddings), len(sorted), domain.ErrAnnotationFailed)
	}

	vectors := make(map[string][]float32, len(sorted))
	for i, tag := range sorted {
		vectors[tag] = res.Embeddings[i]
	}

	t.logger.Debug("Conversation tagged",
		zap.String("conversation_guid", conv.GUID()),
		zap.Int("tags", tags.Len()))
	return &domain.Annotation{Success: true, Tags: tags, Vectors: domain.NewVectors(vectors)}, nil
}

func (t *Tagger) complete(ctx context.Context, transcript string) ([]string, error) {
	req := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(taggingPrompt, t.maxTags)},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		User:           t.user,
	}

	start := time.Now()
	resp, err := t.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.TaggingRequestsTotal.WithLabelValues(t.provider, t.model, "error").Inc()
		return nil, parseAPIError(err, domain.ErrAnnotationFailed)
	}
	metrics.TaggingRequestDuration.WithLabelValues(t.provider, t.model).Observe(duration.Seconds())
	recordTokens(t.provider, t.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	domain.UsageFromContext(ctx).AddTokens(resp.Usage.TotalTokens)

	if len(resp.Choices) == 0 {
		metrics.TaggingRequestsTotal.WithLabelValues(t.provider, t.model, "error").Inc()
		return nil, fmt.Errorf("empty completion response: %w", domain.ErrAnnotationFailed)
	}

	var parsed tagsResponse
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		metrics.TaggingRequestsTotal.WithLabelValues(t.provider, t.model, "error").Inc()
		return nil, fmt.Errorf("parse completion %q: %w", truncate(content, 120), err)
	}

	metrics.TaggingRequestsTotal.WithLabelValues(t.provider, t.model, "success").Inc()
	return parsed.Tags, nil
}

// HealthCheck verifies API availability via ListModels.
func (t *Tagger) HealthCheck(ctx context.Context) error {
	if _, err := t.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// capTags keeps the first n distinct non-empty tags in model order.
func capTags(tags []string, n int) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, min(len(tags), n))
	for _, tag := range tags {
		norm := domain.NormalizeTag(tag)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
		if len(out) == n {
			break
		}
	}
	return out
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
