//go:build integration

package gemini

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docintel/internal/domain"
)

func TestIntegration_EmbedAndGenerate_RealAPI(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, Config{APIKey: apiKey})
	require.NoError(t, err)

	vectors, err := client.EmbedBatch(ctx, []string{"What is anemia?"}, domain.RoleQuery)
	require.NoError(t, err)
	assert.Len(t, vectors[0], DefaultEmbeddingDimensions)

	out, err := client.Generate(ctx, domain.Prompt{System: "Reply with one word.", User: "Say hello."})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
