package domain

// EmbeddingRole tells the embedding provider what a vector will be used for.
type EmbeddingRole string

const (
	RoleDocument EmbeddingRole = "document"
	RoleQuery    EmbeddingRole = "query"
)

// Chunk is a window of a source document, the unit of retrieval.
type Chunk struct {
	Index     int
	SourceID  string // record id for knowledge base entries, empty for ad-hoc documents
	Start     int    // rune offset into the source text
	Text      string
	Embedding []float32
}

// HasEmbedding reports whether the chunk has been embedded.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ScoredChunk pairs a chunk with its similarity to a query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Prompt is what is sent to a generation provider. System carries the fixed
// instruction; User carries caller data and is never treated as instructions.
type Prompt struct {
	System string
	User   string
}
