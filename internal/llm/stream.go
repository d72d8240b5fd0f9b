package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"platewise/internal/plan"
	"platewise/internal/shared"
)

// Chunk is one increment of model output.
type Chunk struct {
	Text  string
	Usage *shared.TokenUsage
	Err   error
}

// ObjectStream consumes a structured generation stream chunk by chunk.
// After each chunk, Partial returns the latest complete-enough snapshot of
// the object being generated; once the stream ends, Object returns the
// schema-validated final plan.
type ObjectStream struct {
	pull   func() (Chunk, bool)
	stop   func()
	schema *jsonschema.Schema

	raw     strings.Builder
	partial *plan.GeneratedPlan
	final   *plan.GeneratedPlan
	usage   shared.TokenUsage
	err     error
	done    bool
}

// NewObjectStream adapts a chunk source into an ObjectStream validating
// against the given JSON schema. stop releases the source and may be nil.
func NewObjectStream(pull func() (Chunk, bool), stop func(), schemaJSON []byte) (*ObjectStream, error) {
	schema, err := compileSchema(schemaJSON)
	if err != nil {
		return nil, err
	}
	return &ObjectStream{pull: pull, stop: stop, schema: schema}, nil
}

// Next advances the stream by one chunk. It returns false when the stream
// has ended or failed; check Err and Object afterwards.
func (s *ObjectStream) Next() bool {
	if s.done {
		return false
	}

	chunk, ok := s.pull()
	if !ok {
		s.finalize()
		return false
	}
	if chunk.Err != nil {
		s.err = chunk.Err
		s.done = true
		return false
	}

	if chunk.Usage != nil {
		s.usage = *chunk.Usage
	}
	s.raw.WriteString(chunk.Text)

	// Snapshots are best-effort: a prefix that cannot be repaired into
	// valid JSON just leaves the previous snapshot in place.
	if cand, ok := completeJSON([]byte(s.raw.String())); ok {
		var p plan.GeneratedPlan
		if err := json.Unmarshal(cand, &p); err == nil {
			s.partial = &p
		}
	}
	return true
}

// Partial returns the latest decoded snapshot, or nil before the first
// decodable prefix has arrived.
func (s *ObjectStream) Partial() *plan.GeneratedPlan {
	return s.partial
}

// Object drains any remaining chunks and returns the final validated plan.
func (s *ObjectStream) Object() (*plan.GeneratedPlan, error) {
	for s.Next() {
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.final, nil
}

// Err returns the error that terminated the stream, if any.
func (s *ObjectStream) Err() error { return s.err }

// Usage returns the token usage reported so far. It is complete once the
// stream has ended.
func (s *ObjectStream) Usage() shared.TokenUsage { return s.usage }

// Close releases the underlying stream and discards any partial state.
// A stream closed before producing a final object reports a cancellation
// error from Object. Safe to call more than once.
func (s *ObjectStream) Close() {
	s.done = true
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	if s.final == nil && s.err == nil {
		s.partial = nil
		s.err = context.Canceled
	}
}

func (s *ObjectStream) finalize() {
	s.done = true

	raw := s.raw.String()
	obj, err := decodePlan(s.schema, []byte(raw))
	if err != nil {
		s.err = &NoObjectError{Cause: err, RawText: raw, Usage: s.usage}
		return
	}
	s.final = obj
}

func compileSchema(schemaJSON []byte) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("plan.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile("plan.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// decodePlan validates raw model output against the schema and decodes it.
func decodePlan(schema *jsonschema.Schema, raw []byte) (*plan.GeneratedPlan, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("empty model output")
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w", err)
	}
	if err := schema.Validate(decoded); err != nil {
		return nil, fmt.Errorf("output does not match schema: %w", err)
	}

	var p plan.GeneratedPlan
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &p, nil
}
