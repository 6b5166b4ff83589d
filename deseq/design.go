package deseq

import (
	"errors"
	"fmt"
	"strings"

	"github.com/carbocation/rnadiff/samplemeta"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrRankDeficient is returned when the design matrix does not have full
	// column rank, e.g. when two covariates are confounded.
	ErrRankDeficient = errors.New("design matrix is not of full rank")

	// ErrUnknownLevel is returned when a contrast names a factor or level that
	// is not part of the design.
	ErrUnknownLevel = errors.New("unknown factor or level")
)

// ParseFormula splits an additive design formula such as "~ lobe + diagnosis"
// into its terms. The intercept is implicit; interactions and intercept
// removal are not supported.
func ParseFormula(formula string) ([]string, error) {
	f := strings.TrimSpace(formula)
	if !strings.HasPrefix(f, "~") {
		return nil, fmt.Errorf("design formula %q must start with ~", formula)
	}
	f = strings.TrimSpace(strings.TrimPrefix(f, "~"))

	// "~ 1" is the intercept-only design
	if f == "1" {
		return []string{}, nil
	}
	if f == "" {
		return nil, fmt.Errorf("design formula %q has no terms", formula)
	}

	seen := make(map[string]struct{})
	terms := make([]string, 0)
	for _, part := range strings.Split(f, "+") {
		term := strings.TrimSpace(part)
		switch {
		case term == "":
			return nil, fmt.Errorf("design formula %q has an empty term", formula)
		case term == "0" || term == "-1":
			return nil, fmt.Errorf("design formula %q: removing the intercept is not supported", formula)
		case term == "1":
			continue
		case strings.ContainsAny(term, ":*-()^ "):
			return nil, fmt.Errorf("design formula %q: term %q is not a plain covariate; only additive designs are supported", formula, term)
		}
		if _, dup := seen[strings.ToLower(term)]; dup {
			return nil, fmt.Errorf("design formula %q repeats term %q", formula, term)
		}
		seen[strings.ToLower(term)] = struct{}{}
		terms = append(terms, term)
	}

	return terms, nil
}

// Term is one categorical covariate of the design, coded against its
// reference level (the first of Levels).
type Term struct {
	Factor string
	Levels []string

	// Column is the index of the coefficient for Levels[1]; Levels[k] has
	// coefficient Column+k-1.
	Column int
}

// Design is a treatment-coded model matrix.
type Design struct {
	Formula string
	Terms   []Term

	// Names labels each coefficient, e.g. "Intercept" or
	// "diagnosis_FCDIIb_vs_Control".
	Names []string

	// X is samples x coefficients.
	X *mat.Dense
}

// NewDesign builds the model matrix for the metadata. reference maps a factor
// name to its reference level; factors without an entry use the
// alphabetically first level.
func NewDesign(meta *samplemeta.Table, formula string, reference map[string]string) (*Design, error) {
	terms, err := ParseFormula(formula)
	if err != nil {
		return nil, err
	}

	n := len(meta.Samples)
	d := &Design{Formula: formula, Names: []string{"Intercept"}}
	columns := [][]float64{ones(n)}

	for _, factor := range terms {
		levels, err := meta.Levels(factor, lookupFold(reference, factor))
		if err != nil {
			return nil, err
		}
		if len(levels) < 2 {
			return nil, fmt.Errorf("design term %s has only one level (%v); drop it from the formula", factor, levels)
		}

		values, err := meta.Column(factor)
		if err != nil {
			return nil, err
		}

		term := Term{Factor: factor, Levels: levels, Column: len(columns)}
		for _, level := range levels[1:] {
			col := make([]float64, n)
			for i, v := range values {
				if v == level {
					col[i] = 1
				}
			}
			columns = append(columns, col)
			d.Names = append(d.Names, fmt.Sprintf("%s_%s_vs_%s", factor, level, levels[0]))
		}
		d.Terms = append(d.Terms, term)
	}

	p := len(columns)
	if p >= n {
		return nil, fmt.Errorf("design %q has %d coefficients but only %d samples; no residual degrees of freedom", formula, p, n)
	}

	d.X = mat.NewDense(n, p, nil)
	for j, col := range columns {
		d.X.SetCol(j, col)
	}

	if err := checkFullRank(d.X); err != nil {
		return nil, fmt.Errorf("design %q: %w", formula, err)
	}

	return d, nil
}

// Term returns the design term for a factor (case-insensitive).
func (d *Design) Term(factor string) (Term, bool) {
	for _, t := range d.Terms {
		if strings.EqualFold(t.Factor, factor) {
			return t, true
		}
	}
	return Term{}, false
}

// ContrastVector returns the coefficient weights that express
// log(numerator / denominator) for one factor.
func (d *Design) ContrastVector(factor, numerator, denominator string) ([]float64, error) {
	if numerator == denominator {
		return nil, fmt.Errorf("contrast %s: numerator and denominator are both %q", factor, numerator)
	}

	term, ok := d.Term(factor)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a term of %q", ErrUnknownLevel, factor, d.Formula)
	}

	c := make([]float64, len(d.Names))
	for _, part := range []struct {
		level  string
		weight float64
	}{{numerator, 1}, {denominator, -1}} {
		k := indexOf(term.Levels, part.level)
		if k < 0 {
			return nil, fmt.Errorf("%w: %q is not a level of %s (levels: %v)", ErrUnknownLevel, part.level, factor, term.Levels)
		}
		if k > 0 {
			c[term.Column+k-1] += part.weight
		}
	}

	return c, nil
}

func checkFullRank(x *mat.Dense) error {
	_, p := x.Dims()
	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return ErrRankDeficient
	}

	// Cholesky can succeed on nearly singular matrices; guard the condition.
	if c := chol.Cond(); c > 1e12 || p == 0 {
		return ErrRankDeficient
	}

	return nil
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func indexOf(haystack []string, needle string) int {
	for i, v := range haystack {
		if v == needle {
			return i
		}
	}
	return -1
}

func lookupFold(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
