// Package bqmap recovers measured barcode and UMI base qualities from a
// FASTQ whose headers carry a |BQ: token, and caches the resulting
// read-name keyed map in a compact binary form so repeated runs skip
// re-parsing the (possibly large, compressed) source.
package bqmap

import "strings"

// Quals holds the measured qualities recovered for one read: the
// concatenated i7+i5+CBC barcode qualities and, when the token carried
// them, the UMI qualities. UMI is nil when the token had no UMI field.
type Quals struct {
	CB  []byte
	UMI []byte
}

const tagMarker = "|BQ:"

// ParseTag extracts the first |BQ: token from a FASTQ header line. The
// token runs to the next whitespace; its fields are ;-separated
// label:value pairs. i7, i5 and CBC must all be present for an entry to
// be produced; their values are concatenated in that order. UMI is
// optional. Unrecognized labels and pieces without a ':' are ignored.
func ParseTag(header string) (Quals, bool) {
	start := strings.Index(header, tagMarker)
	if start < 0 {
		return Quals{}, false
	}
	token := header[start+len(tagMarker):]
	if end := strings.IndexAny(token, " \t"); end >= 0 {
		token = token[:end]
	}

	var i7, i5, cbc, umi string
	var hasI7, hasI5, hasCBC, hasUMI bool
	for _, part := range strings.Split(token, ";") {
		i := strings.Index(part, ":")
		if i < 0 {
			continue
		}
		label, val := part[:i], part[i+1:]
		switch label {
		case "i7":
			i7, hasI7 = val, true
		case "i5":
			i5, hasI5 = val, true
		case "CBC":
			cbc, hasCBC = val, true
		case "UMI":
			umi, hasUMI = val, true
		}
	}
	if !hasI7 || !hasI5 || !hasCBC {
		return Quals{}, false
	}
	quals := Quals{CB: []byte(i7 + i5 + cbc)}
	if hasUMI {
		quals.UMI = []byte(umi)
	}
	return quals, true
}
