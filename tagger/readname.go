package tagger

import (
	"strings"

	"github.com/pkg/errors"
)

// ReadName holds the components encoded in a read name of the form
// {uuid}_{i7}-{i5}-{CBC}_{UMI}. The leading uuid is discarded during
// parsing and never validated.
type ReadName struct {
	I7, I5, CBC, UMI string
}

// ParseReadName splits name into its barcode and UMI components.
//
// Example: 2efc6b85-aa0d-4c1d-ab33-bf5f442fe47c_TTGGCTCC-GGTCGGCG-ACTTGA_GAAGCAGT
// yields {I7: TTGGCTCC, I5: GGTCGGCG, CBC: ACTTGA, UMI: GAAGCAGT}.
//
// The grammar is structural only: components are not validated as
// sequences and may be empty.
func ParseReadName(name string) (ReadName, error) {
	parts := strings.Split(name, "_")
	if len(parts) != 3 {
		return ReadName{}, errors.Errorf("expected 3 underscore-separated parts in read name, found %d: %q", len(parts), name)
	}
	barcodes := strings.Split(parts[1], "-")
	if len(barcodes) != 3 {
		return ReadName{}, errors.Errorf("expected 3 hyphen-separated barcode parts, found %d: %q", len(barcodes), parts[1])
	}
	return ReadName{
		I7:  barcodes[0],
		I5:  barcodes[1],
		CBC: barcodes[2],
		UMI: parts[2],
	}, nil
}
