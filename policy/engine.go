// Package policy gates plans before they reach the runner.
package policy

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/xiaot623/novaflow/internal/domain"
	"github.com/xiaot623/novaflow/internal/runner"
)

// Engine is the OPA policy engine for plan admission.
type Engine struct {
	query        rego.PreparedEvalQuery
	mode         string
	allowedHosts []string
}

// NewEngine prepares the policy for evaluation. mode and allowedHosts come
// from configuration and are fed to the policy as input facts on every call.
func NewEngine(ctx context.Context, policyContent, mode string, allowedHosts []string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.plan_policy"),
		rego.Module("plan_policy.rego", policyContent),
	)
	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}
	return &Engine{query: query, mode: mode, allowedHosts: allowedHosts}, nil
}

// Decision is the policy verdict for one plan.
type Decision struct {
	Decision   string
	Violations []string
}

// Blocked reports whether the plan must not be stored or executed.
func (d *Decision) Blocked() bool {
	return d.Decision != "allow"
}

// EvaluatePlan checks one plan against the admission policy. URL and grammar
// facts are precomputed here; the rego rules only combine them.
func (e *Engine) EvaluatePlan(ctx context.Context, plan *domain.Plan) (*Decision, error) {
	input := map[string]any{
		"mode":          e.mode,
		"allowed_hosts": e.allowedHosts,
		"starting_url":  urlFacts(plan.StartingURL),
		"steps":         stepFacts(plan.Steps),
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, fmt.Errorf("policy returned no result")
	}

	doc, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("policy returned unexpected type %T", results[0].Expressions[0].Value)
	}

	decision := &Decision{Decision: "allow"}
	if d, ok := doc["decision"].(string); ok {
		decision.Decision = d
	}
	if vs, ok := doc["violations"].([]interface{}); ok {
		for _, v := range vs {
			if msg, ok := v.(string); ok {
				decision.Violations = append(decision.Violations, msg)
			}
		}
	}
	return decision, nil
}

// urlFacts parses the starting URL into the flags the policy needs.
func urlFacts(raw string) map[string]any {
	facts := map[string]any{
		"raw":     raw,
		"valid":   false,
		"scheme":  "",
		"host":    "",
		"private": false,
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return facts
	}
	host := u.Hostname()
	facts["scheme"] = u.Scheme
	facts["host"] = host
	facts["valid"] = (u.Scheme == "http" || u.Scheme == "https") && host != ""
	facts["private"] = isPrivateHost(host)
	return facts
}

// isPrivateHost flags loopback, private-range and unspecified literals. Only
// literals: hostnames that resolve into private space are out of scope here.
func isPrivateHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}

func stepFacts(steps []domain.Step) []map[string]any {
	facts := make([]map[string]any, 0, len(steps))
	for _, s := range steps {
		facts = append(facts, map[string]any{
			"id":                s.ID,
			"type":              string(s.Type),
			"instruction":       s.Instruction,
			"requires_approval": s.RequiresApproval,
			"grammar_ok":        runner.MatchesGrammar(s.Instruction),
		})
	}
	return facts
}

// DefaultPolicy is the default plan admission policy.
const DefaultPolicy = `
package plan_policy

default decision := "allow"

decision := "block" if {
	count(violations) > 0
}

violations contains msg if {
	not input.starting_url.valid
	msg := sprintf("starting_url %q is not an absolute http(s) url", [input.starting_url.raw])
}

violations contains msg if {
	input.mode == "plan"
	input.starting_url.valid
	not allowed_host
	msg := sprintf("starting host %q is not in the allowlist", [input.starting_url.host])
}

allowed_host if {
	some h in input.allowed_hosts
	lower(h) == lower(input.starting_url.host)
}

violations contains msg if {
	input.mode == "any_public"
	input.starting_url.private
	msg := sprintf("starting host %q is loopback or private", [input.starting_url.host])
}

violations contains msg if {
	some step in input.steps
	step.type == "ui"
	not step.grammar_ok
	msg := sprintf("step %q instruction matches no runner form: %q", [step.id, step.instruction])
}

violations contains msg if {
	some step in input.steps
	step.type == "ui"
	step.requires_approval
	msg := sprintf("step %q must not require approval", [step.id])
}

violations contains msg if {
	some i, step in input.steps
	step.id == ""
	msg := sprintf("step %d has an empty id", [i])
}

violations contains msg if {
	some i, a in input.steps
	some j, b in input.steps
	i < j
	a.id == b.id
	msg := sprintf("step id %q is duplicated", [a.id])
}
`
