package samplemeta

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TidyOptions controls categorical harmonization.
type TidyOptions struct {
	// Aliases rewrites specific values (after whitespace normalization) to a
	// canonical spelling, e.g. {"FCD IIb": "FCDIIb"}. Keys are matched
	// case-insensitively.
	Aliases map[string]string

	// Reference maps a factor to its reference level, e.g.
	// {"diagnosis": "Control"}. Case variants of a reference level or of an
	// alias target fold onto that spelling rather than the first one seen.
	Reference map[string]string
}

// Tidy harmonizes the encodings of categorical values in place: Unicode
// compatibility folding (NFKC, which also turns non-breaking spaces into
// spaces), whitespace trimming and collapse, alias substitution, and merging
// of values that differ only in case onto the reference level or alias
// target when one matches, otherwise onto the first spelling seen in each
// column. Sample IDs only receive the Unicode and whitespace treatment.
func (t *Table) Tidy(opts TidyOptions) error {
	aliases := make(map[string]string, len(opts.Aliases))
	for k, v := range opts.Aliases {
		aliases[strings.ToLower(cleanText(k))] = cleanText(v)
	}

	preferred := func(factor string) *caseFolder {
		folder := newCaseFolder()
		for k, v := range opts.Reference {
			if strings.EqualFold(k, factor) {
				folder.prefer(cleanText(v))
			}
		}
		for _, v := range aliases {
			folder.prefer(v)
		}
		return folder
	}

	diagnosis := preferred(DiagnosisColumn)
	lobe := preferred(LobeColumn)
	extra := make(map[string]*caseFolder, len(t.ExtraColumns))
	for _, name := range t.ExtraColumns {
		extra[name] = preferred(name)
	}

	categorical := func(folder *caseFolder, v string) string {
		v = cleanText(v)
		if alias, exists := aliases[strings.ToLower(v)]; exists {
			v = alias
		}
		return folder.fold(v)
	}

	for i := range t.Samples {
		s := &t.Samples[i]
		s.ID = cleanText(s.ID)
		s.Diagnosis = categorical(diagnosis, s.Diagnosis)
		s.Lobe = categorical(lobe, s.Lobe)
		for name, v := range s.Extra {
			folder, exists := extra[name]
			if !exists {
				folder = preferred(name)
				extra[name] = folder
			}
			s.Extra[name] = categorical(folder, v)
		}
	}

	return t.Validate()
}

// cleanText applies NFKC folding and collapses runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

type caseFolder struct {
	canonical map[string]string
}

func newCaseFolder() *caseFolder {
	return &caseFolder{canonical: make(map[string]string)}
}

// prefer makes v the canonical spelling of its case variants unless one was
// already chosen.
func (c *caseFolder) prefer(v string) {
	if v == "" {
		return
	}
	key := strings.ToLower(v)
	if _, exists := c.canonical[key]; !exists {
		c.canonical[key] = v
	}
}

func (c *caseFolder) fold(v string) string {
	key := strings.ToLower(v)
	if first, exists := c.canonical[key]; exists {
		return first
	}
	c.canonical[key] = v
	return v
}
