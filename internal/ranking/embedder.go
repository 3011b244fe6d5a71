package ranking

import (
	"context"

	"github.com/rohitmangal/daily-news-podcast/internal/config"
	"github.com/rohitmangal/daily-news-podcast/internal/embedding"
)

// ConfigEmbedder adapts the embedding package's free function to the
// Embedder interface ranking depends on.
type ConfigEmbedder struct {
	Cfg config.EmbeddingConfig
}

func (c ConfigEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	return embedding.EmbedText(ctx, c.Cfg, inputs)
}
