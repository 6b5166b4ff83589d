package rnadiff

import (
	"bytes"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in a sample of a CSV-like file. Only tab, comma and semicolon are
// accepted as answers; comma is returned when nothing else is plausible.
func DetermineDelimiter(sample []byte) rune {
	d := detector.New()
	for _, candidate := range d.DetectDelimiter(bytes.NewReader(sample), '"') {
		if len(candidate) < 1 {
			continue
		}
		switch r := rune(candidate[0]); r {
		case '\t', ',', ';':
			return r
		}
	}

	// The detector needs a few lines to vote. For tiny files, the header alone
	// is usually enough.
	header := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		header = sample[:i]
	}
	switch {
	case bytes.ContainsRune(header, '\t'):
		return '\t'
	case bytes.ContainsRune(header, ';') && !bytes.ContainsRune(header, ','):
		return ';'
	}

	return ','
}
