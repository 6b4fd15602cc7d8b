package simulated

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/convscore/internal/domain"
	domconv "github.com/kailas-cloud/convscore/internal/domain/conversation"
)

// DefaultDimensions is the size of simulated tag embeddings.
const DefaultDimensions = 64

// Annotator tags conversations offline with keyword extraction and hash embeddings.
type Annotator struct {
	maxTags int
	dim     int
	logger  *zap.Logger
}

// NewAnnotator creates an offline annotator.
func NewAnnotator(maxTags, dim int, logger *zap.Logger) *Annotator {
	if maxTags <= 0 {
		maxTags = 20
	}
	if dim <= 0 {
		dim = DefaultDimensions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Annotator{maxTags: maxTags, dim: dim, logger: logger}
}

// Annotate extracts the most frequent keywords of the whole conversation.
func (a *Annotator) Annotate(ctx context.Context, conv domconv.Conversation) (*domain.Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("annotate %s: %w: %w", conv.GUID(), domain.ErrAnnotationFailed, err)
	}
	tags := Keywords(conv.Lines(), a.maxTags)
	ann := annotation(tags, a.dim)
	a.logger.Debug("Conversation tagged offline",
		zap.String("conversation_guid", conv.GUID()),
		zap.Int("tags", ann.Tags.Len()))
	return ann, nil
}

// HealthCheck always succeeds.
func (a *Annotator) HealthCheck(context.Context) error { return nil }

func annotation(tags []string, dim int) *domain.Annotation {
	vectors := make(map[string][]float32, len(tags))
	for _, t := range tags {
		vectors[t] = HashEmbedding(t, dim)
	}
	return &domain.Annotation{Success: true, Tags: domain.NewTagSet(tags...), Vectors: domain.NewVectors(vectors)}
}
