package enrich

import (
	"github.com/BenLubar/memoize"
)

// Similarity scores how redundant two terms are, in [0, 1].
type Similarity interface {
	Similarity(a, b string) float64
}

// Edge weights of the Wang semantic similarity.
const (
	wangIsA    = 0.8
	wangPartOf = 0.6
)

// Wang implements the graph-based GO similarity of Wang et al. (2007): each
// term's semantic value aggregates the contributions of its ancestors,
// decaying by edge type.
type Wang struct {
	o       *Ontology
	sValues func(string) map[string]float64
}

var _ Similarity = (*Wang)(nil)

func NewWang(o *Ontology) *Wang {
	w := &Wang{o: o}
	w.sValues = memoize.Memoize(w.computeSValues).(func(string) map[string]float64)
	return w
}

// computeSValues returns S_A(t) for every t in the ancestor graph of A,
// including A itself.
func (w *Wang) computeSValues(id string) map[string]float64 {
	out := make(map[string]float64)
	root := w.o.Term(id)
	if root == nil {
		return out
	}

	out[root.ID] = 1
	queue := []string{root.ID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		t := w.o.Term(cur)
		if t == nil {
			continue
		}
		relax := func(parents []string, weight float64) {
			for _, p := range parents {
				if pt := w.o.Term(p); pt != nil {
					p = pt.ID
				}
				v := out[cur] * weight
				if v > out[p] {
					out[p] = v
					queue = append(queue, p)
				}
			}
		}
		relax(t.IsA, wangIsA)
		relax(t.PartOf, wangPartOf)
	}

	return out
}

func (w *Wang) Similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	sa, sb := w.sValues(a), w.sValues(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}

	var shared, total float64
	for t, va := range sa {
		total += va
		if vb, exists := sb[t]; exists {
			shared += va + vb
		}
	}
	for _, vb := range sb {
		total += vb
	}

	if total == 0 {
		return 0
	}
	return shared / total
}

// Jaccard scores terms by the overlap of their member genes.
type Jaccard struct {
	members map[string]map[string]struct{}
}

var _ Similarity = (*Jaccard)(nil)

func NewJaccard(sets []GeneSet) *Jaccard {
	j := &Jaccard{members: make(map[string]map[string]struct{}, len(sets))}
	for _, s := range sets {
		m := make(map[string]struct{}, len(s.Genes))
		for _, g := range s.Genes {
			m[g] = struct{}{}
		}
		j.members[s.ID] = m
	}
	return j
}

func (j *Jaccard) Similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	ma, mb := j.members[a], j.members[b]
	if len(ma) == 0 || len(mb) == 0 {
		return 0
	}

	inter := 0
	for g := range ma {
		if _, exists := mb[g]; exists {
			inter++
		}
	}
	return float64(inter) / float64(len(ma)+len(mb)-inter)
}
