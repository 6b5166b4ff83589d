package enrich

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/carbocation/pfx"
)

// GO namespaces as written in OBO files.
const (
	BiologicalProcess = "biological_process"
	MolecularFunction = "molecular_function"
	CellularComponent = "cellular_component"
)

// NamespaceFor maps the short ontology names to OBO namespaces. ALL (or
// blank) maps to "", meaning no filter.
func NamespaceFor(ont string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(ont)) {
	case "BP":
		return BiologicalProcess, nil
	case "MF":
		return MolecularFunction, nil
	case "CC":
		return CellularComponent, nil
	case "ALL", "":
		return "", nil
	}
	return "", fmt.Errorf("unknown ontology %q; use BP, MF, CC or ALL", ont)
}

// Term is one ontology node.
type Term struct {
	ID        string
	Name      string
	Namespace string
	IsA       []string
	PartOf    []string
	Obsolete  bool
}

// Ontology is a directed acyclic graph of terms.
type Ontology struct {
	terms map[string]*Term

	// alternate IDs resolve to their primary term
	alt map[string]string
}

// Term returns the term with the given (possibly alternate) ID, or nil.
func (o *Ontology) Term(id string) *Term {
	if t, exists := o.terms[id]; exists {
		return t
	}
	if primary, exists := o.alt[id]; exists {
		return o.terms[primary]
	}
	return nil
}

// Len is the number of terms.
func (o *Ontology) Len() int { return len(o.terms) }

// ReadOBO parses the [Term] stanzas of an OBO 1.2/1.4 file, keeping names,
// namespaces, is_a and part_of edges. Other stanzas are skipped.
func ReadOBO(r io.Reader) (*Ontology, error) {
	o := &Ontology{terms: make(map[string]*Term), alt: make(map[string]string)}

	var cur *Term
	var alts []string
	inTerm := false

	flush := func() {
		if cur != nil && cur.ID != "" {
			o.terms[cur.ID] = cur
			for _, a := range alts {
				o.alt[a] = cur.ID
			}
		}
		cur, alts = nil, nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			flush()
			inTerm = line == "[Term]"
			if inTerm {
				cur = &Term{}
			}
			continue
		}
		if !inTerm || line == "" || strings.HasPrefix(line, "!") {
			continue
		}

		key, value, ok := splitTag(line)
		if !ok {
			continue
		}

		switch key {
		case "id":
			cur.ID = value
		case "name":
			cur.Name = value
		case "namespace":
			cur.Namespace = value
		case "alt_id":
			alts = append(alts, value)
		case "is_a":
			cur.IsA = append(cur.IsA, firstField(value))
		case "relationship":
			fields := strings.Fields(value)
			if len(fields) >= 2 && fields[0] == "part_of" {
				cur.PartOf = append(cur.PartOf, fields[1])
			}
		case "is_obsolete":
			cur.Obsolete = value == "true"
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(err)
	}
	flush()

	if len(o.terms) == 0 {
		return nil, fmt.Errorf("no [Term] stanzas found in OBO input")
	}

	return o, nil
}

// splitTag splits "key: value ! comment".
func splitTag(line string) (string, string, bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key := strings.TrimSpace(line[:idx])
	value := line[idx+1:]
	if bang := strings.Index(value, " !"); bang >= 0 {
		value = value[:bang]
	}
	return key, strings.TrimSpace(value), true
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
