// Package neo4jopts provides options for Neo4j driver configuration.
package neo4jopts

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/graphrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Neo4j driver configuration.
type Options struct {
	// URI is the bolt/neo4j connection URI.
	URI string `json:"uri" mapstructure:"uri"`

	// Username for basic authentication.
	Username string `json:"username" mapstructure:"username"`

	// Password for basic authentication.
	Password string `json:"password" mapstructure:"password"`

	// Database is the database name to use.
	Database string `json:"database" mapstructure:"database"`

	// Timeout for connectivity verification and queries.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// Required makes startup fail when Neo4j is unreachable.
	// When false the service starts with graph retrieval disabled.
	Required bool `json:"required" mapstructure:"required"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		URI:      "bolt://localhost:7687",
		Username: "neo4j",
		Password: "password",
		Database: "neo4j",
		Timeout:  15 * time.Second,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.URI, options.Join(prefixes...)+"neo4j.uri", o.URI, "Neo4j connection URI (bolt://host:port).")
	fs.StringVar(&o.Username, options.Join(prefixes...)+"neo4j.username", o.Username, "Neo4j username.")
	fs.StringVar(&o.Password, options.Join(prefixes...)+"neo4j.password", o.Password, "Neo4j password.")
	fs.StringVar(&o.Database, options.Join(prefixes...)+"neo4j.database", o.Database, "Neo4j database name.")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"neo4j.timeout", o.Timeout, "Neo4j connectivity and query timeout.")
	fs.BoolVar(&o.Required, options.Join(prefixes...)+"neo4j.required", o.Required, "Fail startup when Neo4j is unreachable.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.URI == "" {
		errs = append(errs, fmt.Errorf("neo4j uri is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("neo4j timeout must be positive"))
	}
	return errs
}
