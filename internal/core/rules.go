package core

import (
	"strings"

	"aquasync/pkg/domain"
)

// MethodRules tags verdicts produced by the rule engine.
const MethodRules = "rules/v1"

// Engine evaluates species pairs against an ordered rule list.
type Engine struct {
	rules      []domain.PairRule
	stocking   []domain.StockingRule
	thresholds Thresholds
	method     string
}

// NewEngine constructs an engine with no rules registered.
func NewEngine(th Thresholds) *Engine {
	return &Engine{thresholds: th.withDefaults(), method: MethodRules}
}

// NewDefaultEngine builds an engine with the built-in rule set in its
// canonical order.
func NewDefaultEngine(th Thresholds) *Engine {
	engine := NewEngine(th)
	th = engine.thresholds
	engine.Register(NewWaterTypeRule())
	engine.Register(NewTemperatureRule(th))
	engine.Register(NewPHRule(th))
	engine.Register(NewHardnessRule(th))
	engine.Register(NewTemperamentRule(th))
	engine.Register(NewSizeRatioRule(th))
	engine.Register(NewFinNippingRule())
	engine.Register(NewTerritoryRule())
	engine.Register(NewActivityRule())
	engine.Register(NewDietRule())
	engine.RegisterStocking(NewSchoolingRule())
	return engine
}

// Register appends a pair rule to the engine.
func (e *Engine) Register(rule domain.PairRule) {
	e.rules = append(e.rules, rule)
}

// RegisterStocking appends a rule that needs the tank stocking list.
func (e *Engine) RegisterStocking(rule domain.StockingRule) {
	e.stocking = append(e.stocking, rule)
}

// Thresholds returns the thresholds the built-in rules were created with.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// Method returns the evaluation method tag stamped on verdicts.
func (e *Engine) Method() string { return e.method }

// RuleNames lists the registered pair rules in evaluation order.
func (e *Engine) RuleNames() []string {
	names := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		names = append(names, r.Name())
	}
	return names
}

// Signature identifies the rule set and thresholds; it changes whenever a
// stored verdict could no longer be reproduced.
func (e *Engine) Signature() string {
	return e.method + ";" + strings.Join(e.RuleNames(), ",") + ";" + e.thresholds.signature()
}

// Assess runs every pair rule for the already-ordered pair.
func (e *Engine) Assess(a, b domain.Species) domain.Assessment {
	var out domain.Assessment
	for _, rule := range e.rules {
		out.Add(rule.Evaluate(a, b))
	}
	return out
}

// AssessStocking runs the tank-context rules for the already-ordered pair.
func (e *Engine) AssessStocking(a, b domain.Species, stocking map[string]int) domain.Assessment {
	var out domain.Assessment
	for _, rule := range e.stocking {
		out.Add(rule.EvaluateStocked(a, b, stocking))
	}
	return out
}

// Evaluate returns the verdict for an unordered pair. The result does not
// depend on argument order.
func (e *Engine) Evaluate(a, b domain.Species) domain.Verdict {
	a, b = canonicalOrder(a, b)
	return e.Assess(a, b).Verdict(domain.NewPairKey(a.Name, b.Name), e.method)
}

// EvaluateInTank evaluates the pair with the tank-context rules folded in.
func (e *Engine) EvaluateInTank(a, b domain.Species, stocking map[string]int) domain.Verdict {
	a, b = canonicalOrder(a, b)
	combined := e.Assess(a, b).Combine(e.AssessStocking(a, b, stocking))
	return combined.Verdict(domain.NewPairKey(a.Name, b.Name), e.method)
}

func canonicalOrder(a, b domain.Species) (domain.Species, domain.Species) {
	if b.Name < a.Name {
		return b, a
	}
	return a, b
}
