// Package graphrag assembles the GraphRAG service application.
package graphrag

import (
	"github.com/spf13/pflag"

	httpopts "github.com/kart-io/graphrag/pkg/options/http"
	llmopts "github.com/kart-io/graphrag/pkg/options/llm"
	logopts "github.com/kart-io/graphrag/pkg/options/logger"
	milvusopts "github.com/kart-io/graphrag/pkg/options/milvus"
	neo4jopts "github.com/kart-io/graphrag/pkg/options/neo4j"
	pipelineopts "github.com/kart-io/graphrag/pkg/options/pipeline"
)

// Options aggregates all configuration for the GraphRAG server.
type Options struct {
	// HTTP contains HTTP server configuration.
	HTTP *httpopts.Options `json:"http" mapstructure:"http"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Milvus contains Milvus configuration (milvus vector engine).
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// Neo4j contains knowledge graph configuration.
	Neo4j *neo4jopts.Options `json:"neo4j" mapstructure:"neo4j"`

	// Embedding contains embedding provider configuration.
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// Chat contains chat provider configuration.
	Chat *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// Pipeline contains retrieval and scoring configuration.
	Pipeline *pipelineopts.Options `json:"pipeline" mapstructure:"pipeline"`
}

// NewOptions creates Options with default values.
func NewOptions() *Options {
	return &Options{
		HTTP:      httpopts.NewOptions(),
		Log:       logopts.NewOptions(),
		Milvus:    milvusopts.NewOptions(),
		Neo4j:     neo4jopts.NewOptions(),
		Embedding: llmopts.NewEmbeddingOptions(),
		Chat:      llmopts.NewChatOptions(),
		Pipeline:  pipelineopts.NewOptions(),
	}
}

// AddFlags registers all option flags.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.HTTP.AddFlags(fs)
	o.Log.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.Neo4j.AddFlags(fs)
	o.Embedding.AddFlags(fs)
	o.Chat.AddFlags(fs)
	o.Pipeline.AddFlags(fs)
}

// Complete fills in derived values. Nothing to derive currently.
func (o *Options) Complete() error {
	return nil
}

// Validate validates all option groups.
func (o *Options) Validate() []error {
	var errs []error
	if err := o.HTTP.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := o.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.Neo4j.Validate()...)
	errs = append(errs, o.Embedding.Validate()...)
	errs = append(errs, o.Chat.Validate()...)
	errs = append(errs, o.Pipeline.Validate()...)
	if o.Pipeline.VectorEngine == pipelineopts.EngineMilvus {
		errs = append(errs, o.Milvus.Validate()...)
	}
	return errs
}
