// Package heuristic ranks a settlement's crises and operational needs.
// Evaluation is pure: the same snapshot always yields the same issues.
package heuristic

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/talgya/colony-ai/internal/colony"
)

// Issue is a named deviation from nominal state. Issues are recomputed every
// tick and never stored.
type Issue struct {
	Type     IssueType
	Severity int
	Action   string
	Payload  map[string]any
}

// Heuristic evaluates compiled rules against settlement snapshots.
type Heuristic struct {
	cfg   Config
	rules []*Rule
	log   *slog.Logger
}

// New compiles the default rules.
func New(cfg Config) (*Heuristic, error) {
	return NewWithRules(cfg, DefaultRules())
}

// NewWithRules compiles every rule condition and branch into expr bytecode.
func NewWithRules(cfg Config, rules []*Rule) (*Heuristic, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &Heuristic{
		cfg:   cfg,
		rules: compiled,
		log:   slog.Default().With("component", "priority_heuristic"),
	}, nil
}

func compileRules(rules []*Rule) ([]*Rule, error) {
	for _, r := range rules {
		if _, ok := Severities[r.Type]; !ok {
			return nil, fmt.Errorf("rule %q: unknown issue type %q", r.Name, r.Type)
		}
		prog, err := compile(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		r.program = prog
		for i := range r.Branches {
			prog, err := compile(r.Branches[i].When)
			if err != nil {
				return nil, fmt.Errorf("compile rule %q branch %q: %w", r.Name, r.Branches[i].Action, err)
			}
			r.Branches[i].program = prog
		}
	}
	return rules, nil
}

func compile(src string) (*vm.Program, error) {
	return expr.Compile(src, expr.Env(Env{}), expr.AsBool())
}

// Evaluate returns issues ordered by severity, highest first. Rules of equal
// severity keep declaration order. A nominal settlement yields nil.
func (h *Heuristic) Evaluate(s colony.Snapshot) []Issue {
	env := newEnv(s, h.cfg)

	var issues []Issue
	for _, r := range h.rules {
		if !h.holds(r.Name, r.program, env) {
			continue
		}
		action := ""
		for _, b := range r.Branches {
			if h.holds(r.Name, b.program, env) {
				action = b.Action
				break
			}
		}
		payload := map[string]any{}
		if r.Payload != nil {
			payload = r.Payload(env)
		}
		payload["action"] = action
		issues = append(issues, Issue{
			Type:     r.Type,
			Severity: Severities[r.Type],
			Action:   action,
			Payload:  payload,
		})
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity > issues[j].Severity
	})
	return issues
}

// holds runs a compiled condition. Evaluation errors fall through as false.
func (h *Heuristic) holds(rule string, prog *vm.Program, env Env) bool {
	out, err := vm.Run(prog, env)
	if err != nil {
		h.log.Debug("rule condition error", "rule", rule, "error", err)
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// Actions lists the resolved action of each issue, in order.
func Actions(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.Action)
	}
	return out
}

// Critical returns the issues at or above the given severity.
func Critical(issues []Issue, minSeverity int) []Issue {
	var out []Issue
	for _, is := range issues {
		if is.Severity >= minSeverity {
			out = append(out, is)
		}
	}
	return out
}
