package templates

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/abhisek/adaptiq/internal/question"
)

// between returns a uniform integer in [lo, hi].
func between(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

func pick[T any](r *rand.Rand, xs []T) T {
	return xs[r.IntN(len(xs))]
}

// numericDistractors returns up to three distinct wrong answers near answer.
func numericDistractors(r *rand.Rand, answer int) []string {
	offsets := []int{-1, 1, 2, -2, 10, -10, 3}
	r.Shuffle(len(offsets), func(i, j int) { offsets[i], offsets[j] = offsets[j], offsets[i] })

	var out []string
	for _, off := range offsets {
		v := answer + off
		if v < 0 {
			continue
		}
		out = append(out, strconv.Itoa(v))
		if len(out) == 3 {
			break
		}
	}
	return out
}

func arithmeticValue(r *rand.Rand, tier question.Tier) Value {
	var text string
	var answer int

	switch tier {
	case question.TierBeginner:
		a, b := between(r, 1, 20), between(r, 1, 20)
		if r.IntN(2) == 0 {
			text, answer = fmt.Sprintf("%d + %d", a, b), a+b
		} else {
			a, b = max(a, b), min(a, b)
			text, answer = fmt.Sprintf("%d − %d", a, b), a-b
		}
	case question.TierIntermediate:
		a, b := between(r, 3, 12), between(r, 3, 12)
		text, answer = fmt.Sprintf("%d × %d", a, b), a*b
	case question.TierAdvanced:
		a, b, c := between(r, 11, 25), between(r, 3, 9), between(r, 5, 50)
		text, answer = fmt.Sprintf("%d × %d + %d", a, b, c), a*b+c
	default:
		divisor, quotient := between(r, 3, 12), between(r, 6, 25)
		d, e := between(r, 3, 9), between(r, 4, 12)
		text = fmt.Sprintf("(%d ÷ %d) + %d × %d", divisor*quotient, divisor, d, e)
		answer = quotient + d*e
	}

	return Value{
		Text:        text,
		Answer:      strconv.Itoa(answer),
		Distractors: numericDistractors(r, answer),
	}
}

// signed renders a coefficient term such as "+ 3x" or "− x".
func signed(coef int, suffix string) string {
	if coef == 0 {
		return ""
	}
	sign := "+"
	if coef < 0 {
		sign, coef = "−", -coef
	}
	if coef == 1 && suffix != "" {
		return fmt.Sprintf(" %s %s", sign, suffix)
	}
	return fmt.Sprintf(" %s %d%s", sign, coef, suffix)
}

// equationValue produces an equation with exactly one positive solution.
// Beginner is linear, intermediate quadratic, advanced cubic and expert
// logarithmic.
func equationValue(r *rand.Rand, tier question.Tier) Value {
	var text string
	var x int

	switch tier {
	case question.TierBeginner:
		x = between(r, 1, 12)
		a, b := between(r, 2, 9), between(r, 1, 20)
		text = fmt.Sprintf("%dx + %d = %d", a, b, a*x+b)
	case question.TierIntermediate:
		// (x − p)(x + q) = 0 with p, q > 0 has the single positive root p.
		x = between(r, 2, 9)
		q := between(r, 1, 9)
		text = fmt.Sprintf("x²%s%s = 0", signed(q-x, "x"), signed(-x*q, ""))
	case question.TierAdvanced:
		x = between(r, 2, 6)
		k := between(r, 1, 30)
		text = fmt.Sprintf("x³ + %d = %d", k, x*x*x+k)
	default:
		base := between(r, 2, 5)
		exp := between(r, 2, 4)
		x = 1
		for range exp {
			x *= base
		}
		text = fmt.Sprintf("log%s(x) = %d", subscript(base), exp)
	}

	answer := strconv.Itoa(x)
	return Value{
		Text:        text,
		Answer:      answer,
		Accept:      []string{"x = " + answer, "x=" + answer},
		Distractors: numericDistractors(r, x),
	}
}

func subscript(n int) string {
	const digits = "₀₁₂₃₄₅₆₇₈₉"
	runes := []rune(digits)
	var b strings.Builder
	for _, c := range strconv.Itoa(n) {
		b.WriteRune(runes[c-'0'])
	}
	return b.String()
}

var numberRanges = map[question.Tier][2]int{
	question.TierBeginner:     {1, 20},
	question.TierIntermediate: {21, 99},
	question.TierAdvanced:     {100, 999},
	question.TierExpert:       {1000, 9999},
}

// numberValue renders a number in words; the answer is its digits.
func numberValue(r *rand.Rand, tier question.Tier) Value {
	rng := numberRanges[tier]
	n := between(r, rng[0], rng[1])
	return Value{
		Text:        spell(n),
		Answer:      strconv.Itoa(n),
		Distractors: numericDistractors(r, n),
	}
}

var (
	ones = []string{
		"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
		"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
		"seventeen", "eighteen", "nineteen",
	}
	tens = []string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"}
)

// spell writes n (0 ≤ n < 10000) in English words.
func spell(n int) string {
	switch {
	case n < 20:
		return ones[n]
	case n < 100:
		if n%10 == 0 {
			return tens[n/10]
		}
		return tens[n/10] + "-" + ones[n%10]
	case n < 1000:
		s := ones[n/100] + " hundred"
		if n%100 != 0 {
			s += " " + spell(n%100)
		}
		return s
	default:
		s := ones[n/1000] + " thousand"
		if n%1000 != 0 {
			s += " " + spell(n%1000)
		}
		return s
	}
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}

var primeRanges = map[question.Tier][2]int{
	question.TierBeginner:     {2, 20},
	question.TierIntermediate: {20, 100},
	question.TierAdvanced:     {100, 500},
	question.TierExpert:       {500, 2000},
}

func primeClaimValue(r *rand.Rand, tier question.Tier) Value {
	rng := primeRanges[tier]
	wantPrime := r.IntN(2) == 0

	// Odd composites are the interesting false case above beginner.
	accept := func(n int) bool {
		if isPrime(n) != wantPrime {
			return false
		}
		return wantPrime || tier == question.TierBeginner || n%2 == 1
	}

	n := between(r, rng[0], rng[1])
	for !accept(n) {
		n++
		if n > rng[1] {
			n = rng[0]
		}
	}
	return Value{
		Text:   fmt.Sprintf("%d is a prime number", n),
		Answer: strconv.FormatBool(wantPrime),
	}
}

type element struct{ name, symbol string }

var elementsByTier = map[question.Tier][]element{
	question.TierBeginner: {
		{"hydrogen", "H"}, {"oxygen", "O"}, {"carbon", "C"},
		{"nitrogen", "N"}, {"helium", "He"}, {"sulfur", "S"},
	},
	question.TierIntermediate: {
		{"sodium", "Na"}, {"potassium", "K"}, {"iron", "Fe"},
		{"calcium", "Ca"}, {"chlorine", "Cl"}, {"magnesium", "Mg"},
	},
	question.TierAdvanced: {
		{"silver", "Ag"}, {"gold", "Au"}, {"lead", "Pb"},
		{"mercury", "Hg"}, {"tin", "Sn"}, {"copper", "Cu"},
	},
	question.TierExpert: {
		{"tungsten", "W"}, {"antimony", "Sb"}, {"tellurium", "Te"},
		{"osmium", "Os"}, {"rubidium", "Rb"}, {"molybdenum", "Mo"},
	},
}

func elementValue(r *rand.Rand, tier question.Tier) Value {
	pool := elementsByTier[tier]
	chosen := pick(r, pool)

	var distractors []string
	for _, i := range r.Perm(len(pool)) {
		if pool[i].symbol != chosen.symbol {
			distractors = append(distractors, pool[i].symbol)
		}
		if len(distractors) == 3 {
			break
		}
	}
	return Value{Text: chosen.name, Answer: chosen.symbol, Distractors: distractors}
}

type claim struct {
	text  string
	holds bool
}

var scienceClaims = map[question.Tier][]claim{
	question.TierBeginner: {
		{"water boils at 100 °C at sea level", true},
		{"the Sun orbits the Earth", false},
		{"plants need sunlight to make their food", true},
		{"sound travels faster than light", false},
	},
	question.TierIntermediate: {
		{"the mitochondrion is where cellular respiration releases most of a cell's energy", true},
		{"an atom's nucleus contains electrons", false},
		{"acids have a pH below 7", true},
		{"all metals are magnetic", false},
	},
	question.TierAdvanced: {
		{"DNA replication is semi-conservative", true},
		{"the speed of light is the same in water as in a vacuum", false},
		{"enzymes lower the activation energy of a reaction", true},
		{"an exothermic reaction absorbs heat from its surroundings", false},
	},
	question.TierExpert: {
		{"entropy of an isolated system never decreases", true},
		{"electrons in the same orbital can share all four quantum numbers", false},
		{"the Krebs cycle takes place in the mitochondrial matrix", true},
		{"neutrinos carry an electric charge", false},
	},
}

func scienceClaimValue(r *rand.Rand, tier question.Tier) Value {
	c := pick(r, scienceClaims[tier])
	return Value{Text: c.text, Answer: strconv.FormatBool(c.holds)}
}

var conceptsByTier = map[question.Tier][]string{
	question.TierBeginner:     {"the water cycle", "the life cycle of a butterfly", "day and night"},
	question.TierIntermediate: {"photosynthesis", "the rock cycle", "food chains"},
	question.TierAdvanced:     {"natural selection", "plate tectonics", "chemical equilibrium"},
	question.TierExpert:       {"quantum tunnelling", "the greenhouse effect feedback loops", "gene regulation"},
}

func conceptValue(r *rand.Rand, tier question.Tier) Value {
	return Value{Text: pick(r, conceptsByTier[tier])}
}

type synonymEntry struct {
	word     string
	synonyms []string
}

var synonymsByTier = map[question.Tier][]synonymEntry{
	question.TierBeginner: {
		{"big", []string{"large", "huge"}},
		{"happy", []string{"glad", "joyful"}},
		{"fast", []string{"quick", "rapid"}},
		{"small", []string{"little", "tiny"}},
	},
	question.TierIntermediate: {
		{"brave", []string{"courageous", "bold"}},
		{"angry", []string{"furious", "irate"}},
		{"ancient", []string{"old", "antique"}},
		{"difficult", []string{"hard", "challenging"}},
	},
	question.TierAdvanced: {
		{"ambiguous", []string{"unclear", "vague"}},
		{"diligent", []string{"hardworking", "industrious"}},
		{"candid", []string{"frank", "honest"}},
		{"scarce", []string{"rare", "scant"}},
	},
	question.TierExpert: {
		{"ephemeral", []string{"fleeting", "transient"}},
		{"obfuscate", []string{"obscure", "confuse"}},
		{"loquacious", []string{"talkative", "garrulous"}},
		{"recalcitrant", []string{"stubborn", "unruly"}},
	},
}

// otherSynonyms returns the first synonym of every entry except skip.
func otherSynonyms(r *rand.Rand, pool []synonymEntry, skip string) []string {
	var out []string
	for _, i := range r.Perm(len(pool)) {
		if pool[i].word != skip {
			out = append(out, pool[i].synonyms[0])
		}
	}
	return out
}

func synonymValue(r *rand.Rand, tier question.Tier) Value {
	pool := synonymsByTier[tier]
	e := pick(r, pool)
	distractors := otherSynonyms(r, pool, e.word)
	if len(distractors) > 3 {
		distractors = distractors[:3]
	}
	return Value{
		Text:        e.word,
		Answer:      e.synonyms[0],
		Accept:      slices.Clone(e.synonyms[1:]),
		Distractors: distractors,
	}
}

func synonymClaimValue(r *rand.Rand, tier question.Tier) Value {
	pool := synonymsByTier[tier]
	e := pick(r, pool)
	if r.IntN(2) == 0 {
		return Value{
			Text:   fmt.Sprintf("%q means the same as %q", e.word, pick(r, e.synonyms)),
			Answer: "true",
		}
	}
	wrong := otherSynonyms(r, pool, e.word)[0]
	return Value{
		Text:   fmt.Sprintf("%q means the same as %q", e.word, wrong),
		Answer: "false",
	}
}
