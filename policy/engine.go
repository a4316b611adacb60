package policy

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the file access policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Operations evaluated by the file access policy.
const (
	OpList = "list"
	OpRead = "read"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// Input is what the file access policy sees for one path.
type Input struct {
	Path     string   `json:"path"`
	Segments []string `json:"segments"`
	Type     string   `json:"type"`
	Op       string   `json:"op"`
}

// NewInput builds policy input for a slash-separated relative path.
func NewInput(path, fileType, op string) Input {
	segments := []string{}
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return Input{Path: path, Segments: segments, Type: fileType, Op: op}
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.file_access.decision"),
		rego.Module("file_access.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy from path, or the default policy when
// path is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate checks the file access policy.
// Returns: decision (allow, block), reason (optional), error
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "default", nil
	}

	// The rule may return a bare decision or {decision, reason}.
	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return val, "", nil
	case map[string]interface{}:
		decision, _ := val["decision"].(string)
		reason, _ := val["reason"].(string)
		if decision == "" {
			return DecisionAllow, "unexpected return type", nil
		}
		return decision, reason, nil
	}
	return DecisionAllow, "unexpected return type", nil
}

// Allowed reports whether the policy allows the input.
func (e *Engine) Allowed(ctx context.Context, input Input) (bool, error) {
	decision, _, err := e.Evaluate(ctx, input)
	if err != nil {
		return false, err
	}
	return decision != DecisionBlock, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package file_access

default decision = "allow"

# Hidden files: atomic-write temp files, the log database.
decision = "block" {
	some i
	startswith(input.segments[i], ".")
}
`
