// Package pipeline provides options for the question answering pipeline.
package pipeline

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/graphrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Vector engine names.
const (
	EngineFlat   = "flat"
	EngineMilvus = "milvus"
)

// Options contains tuning knobs for retrieval, scoring and ingestion.
type Options struct {
	// TopKVector is the default number of vector hits per query.
	TopKVector int `json:"top-k-vector" mapstructure:"top-k-vector"`

	// TopKKG is the number of knowledge graph entities per query.
	TopKKG int `json:"top-k-kg" mapstructure:"top-k-kg"`

	// KGMaxDepth is the relation traversal depth.
	KGMaxDepth int `json:"kg-max-depth" mapstructure:"kg-max-depth"`

	// ChunkSize is the target chunk size in characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the chunk overlap in characters.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// ConfidenceThreshold is the minimum confidence before rejection applies.
	ConfidenceThreshold float64 `json:"confidence-threshold" mapstructure:"confidence-threshold"`

	// MinContextLength is the minimum context length in characters
	// below which an answer is rejected outright.
	MinContextLength int `json:"min-context-length" mapstructure:"min-context-length"`

	// EmbeddingDim is the embedding dimensionality.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// VectorEngine selects the vector index backend (flat, milvus).
	VectorEngine string `json:"vector-engine" mapstructure:"vector-engine"`

	// IndexPath is the persistence path for the flat engine.
	IndexPath string `json:"index-path" mapstructure:"index-path"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		TopKVector:          5,
		TopKKG:              10,
		KGMaxDepth:          2,
		ChunkSize:           1000,
		ChunkOverlap:        200,
		ConfidenceThreshold: 0.4,
		MinContextLength:    50,
		EmbeddingDim:        1536,
		VectorEngine:        EngineFlat,
		IndexPath:           "./data/vector_index",
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "pipeline."
	fs.IntVar(&o.TopKVector, p+"top-k-vector", o.TopKVector, "Default number of vector hits per query.")
	fs.IntVar(&o.TopKKG, p+"top-k-kg", o.TopKKG, "Number of knowledge graph entities per query.")
	fs.IntVar(&o.KGMaxDepth, p+"kg-max-depth", o.KGMaxDepth, "Knowledge graph traversal depth.")
	fs.IntVar(&o.ChunkSize, p+"chunk-size", o.ChunkSize, "Target chunk size in characters.")
	fs.IntVar(&o.ChunkOverlap, p+"chunk-overlap", o.ChunkOverlap, "Chunk overlap in characters.")
	fs.Float64Var(&o.ConfidenceThreshold, p+"confidence-threshold", o.ConfidenceThreshold, "Minimum confidence before rejection applies.")
	fs.IntVar(&o.MinContextLength, p+"min-context-length", o.MinContextLength, "Minimum context length in characters.")
	fs.IntVar(&o.EmbeddingDim, p+"embedding-dim", o.EmbeddingDim, "Embedding dimensionality.")
	fs.StringVar(&o.VectorEngine, p+"vector-engine", o.VectorEngine, "Vector index backend (flat, milvus).")
	fs.StringVar(&o.IndexPath, p+"index-path", o.IndexPath, "Persistence path for the flat vector index.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TopKVector <= 0 {
		errs = append(errs, fmt.Errorf("top-k-vector must be positive"))
	}
	if o.TopKKG <= 0 {
		errs = append(errs, fmt.Errorf("top-k-kg must be positive"))
	}
	if o.KGMaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("kg-max-depth must be positive"))
	}
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk-overlap must be in [0, chunk-size)"))
	}
	if o.ConfidenceThreshold < 0 || o.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("confidence-threshold must be in [0, 1]"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("embedding-dim must be positive"))
	}
	if o.VectorEngine != EngineFlat && o.VectorEngine != EngineMilvus {
		errs = append(errs, fmt.Errorf("vector-engine must be %q or %q", EngineFlat, EngineMilvus))
	}
	if o.VectorEngine == EngineFlat && o.IndexPath == "" {
		errs = append(errs, fmt.Errorf("index-path is required for the flat engine"))
	}
	return errs
}
