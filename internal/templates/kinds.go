package templates

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/question"
)

// VariableKind identifies the generator that resolves a template variable.
type VariableKind int

const (
	KindArithmetic   VariableKind = iota + 1 // "7 + 5" .. "(96 ÷ 8) + 4 × 6"
	KindEquation                             // linear, quadratic, cubic, logarithmic
	KindNumber                               // a number in words, answered in digits
	KindPrimeClaim                           // "17 is a prime number", true or false
	KindElement                              // element name, answered with its symbol
	KindScienceClaim                         // science statement, true or false
	KindConcept                              // essay topic
	KindSynonym                              // word, answered with a synonym
	KindSynonymClaim                         // "big means the same as large", true or false
)

var kindNames = map[VariableKind]string{
	KindArithmetic:   "arithmetic",
	KindEquation:     "equation",
	KindNumber:       "number",
	KindPrimeClaim:   "prime-claim",
	KindElement:      "element",
	KindScienceClaim: "science-claim",
	KindConcept:      "concept",
	KindSynonym:      "synonym",
	KindSynonymClaim: "synonym-claim",
}

// AllKinds returns every built-in variable kind.
func AllKinds() []VariableKind {
	return []VariableKind{
		KindArithmetic, KindEquation, KindNumber, KindPrimeClaim,
		KindElement, KindScienceClaim, KindConcept, KindSynonym, KindSynonymClaim,
	}
}

func (k VariableKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind parses a kind name such as "prime-claim".
func ParseKind(s string) (VariableKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown variable kind %q", s)
}

func (k VariableKind) MarshalText() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("marshal variable kind: invalid value %d", int(k))
	}
	return []byte(name), nil
}

func (k *VariableKind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Value is a resolved variable.
type Value struct {
	// Text is substituted for the {variable} token.
	Text string

	// Answer is the canonical answer when the template's AnswerVar names
	// this variable. For claims it is "true" or "false".
	Answer string

	// Accept lists additional acceptable answers (fill-blank).
	Accept []string

	// Distractors are plausible wrong answers for multiple choice.
	Distractors []string
}

// ValueFunc produces a value whose complexity scales with tier.
// Implementations must only draw randomness from r.
type ValueFunc func(r *rand.Rand, tier question.Tier) Value

// Registry maps each variable kind to its generator. Register is meant for
// setup; a Registry is safe for concurrent Resolve calls once built.
type Registry struct {
	funcs map[VariableKind]ValueFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[VariableKind]ValueFunc)}
}

// DefaultRegistry returns a registry with every built-in kind registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindArithmetic, arithmeticValue)
	r.Register(KindEquation, equationValue)
	r.Register(KindNumber, numberValue)
	r.Register(KindPrimeClaim, primeClaimValue)
	r.Register(KindElement, elementValue)
	r.Register(KindScienceClaim, scienceClaimValue)
	r.Register(KindConcept, conceptValue)
	r.Register(KindSynonym, synonymValue)
	r.Register(KindSynonymClaim, synonymClaimValue)
	return r
}

// Register installs fn for kind k, replacing any previous generator.
func (r *Registry) Register(k VariableKind, fn ValueFunc) {
	r.funcs[k] = fn
}

// Has reports whether k has a generator.
func (r *Registry) Has(k VariableKind) bool {
	_, ok := r.funcs[k]
	return ok
}

// Resolve generates a value for kind k at the given tier.
func (r *Registry) Resolve(k VariableKind, rnd *rand.Rand, tier question.Tier) (Value, error) {
	fn, ok := r.funcs[k]
	if !ok {
		return Value{}, apperr.Misconfigured("no generator registered for variable kind %s", k)
	}
	if !tier.Valid() {
		return Value{}, apperr.Invalid("difficulty", "unknown tier %d", int(tier))
	}
	return fn(rnd, tier), nil
}
