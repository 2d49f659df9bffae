package pipeline

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/ppiankov/materialsio/internal/model"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Envelope is one rendered result, tagged with the run that produced it
type Envelope struct {
	RunID string `json:"run_id" yaml:"run_id"`
	Root  string `json:"root,omitempty" yaml:"root,omitempty"`

	model.ParseResult `yaml:",inline"`
}

// Renderer writes results as JSON lines or a YAML document stream
type Renderer struct {
	runID   string
	format  string
	jsonEnc *json.Encoder
	yamlEnc *yaml.Encoder
	closed  bool
}

// NewRenderer creates a renderer with a fresh run ID
func NewRenderer(w io.Writer, cfg model.OutputConfig) (*Renderer, error) {
	r := &Renderer{
		runID:  uuid.NewString(),
		format: cfg.Format,
	}

	switch cfg.Format {
	case "", FormatJSON:
		r.format = FormatJSON
		r.jsonEnc = json.NewEncoder(w)
		if cfg.Pretty {
			r.jsonEnc.SetIndent("", "  ")
		}
	case FormatYAML:
		r.yamlEnc = yaml.NewEncoder(w)
		r.yamlEnc.SetIndent(2)
	default:
		return nil, fmt.Errorf("unknown output format: %s (supported: %s, %s)", cfg.Format, FormatJSON, FormatYAML)
	}

	return r, nil
}

// RunID returns the identifier stamped on every result
func (r *Renderer) RunID() string {
	return r.runID
}

// Result writes one parse result found under root
func (r *Renderer) Result(root string, res model.ParseResult) error {
	return r.Value(Envelope{RunID: r.runID, Root: root, ParseResult: res})
}

// Value writes any serialisable value as one document
func (r *Renderer) Value(v any) error {
	var err error
	if r.jsonEnc != nil {
		err = r.jsonEnc.Encode(v)
	} else {
		err = r.yamlEnc.Encode(v)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", r.format, err)
	}
	return nil
}

// Close flushes any buffered output. Extra calls do nothing.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.yamlEnc != nil {
		return r.yamlEnc.Close()
	}
	return nil
}
