package tagger

import "github.com/grailbio/tagbam/encoding/bqmap"

// perfectQual is the base quality reported when no measured quality is
// available: Phred 40, ASCII 'I'.
const perfectQual = 'I'

// PerfectQual returns n bytes of perfect ('I') base quality.
func PerfectQual(n int) []byte {
	q := make([]byte, n)
	for i := range q {
		q[i] = perfectQual
	}
	return q
}

// A QualSource supplies the CY and UY quality strings for a read.
// barcodeLen and umiLen are the lengths of the decoded components;
// sources without measured data for the read synthesize perfect
// quality of those lengths. A QualSource is read-only after
// construction and safe to share.
type QualSource interface {
	Quals(name string, barcodeLen, umiLen int) (barcodeQual, umiQual []byte)
}

// NewQualSource returns a source backed by the given BQ map, or a
// purely synthetic source when m is nil.
func NewQualSource(m map[string]bqmap.Quals) QualSource {
	if m == nil {
		return perfectSource{}
	}
	return &mapSource{m: m}
}

type perfectSource struct{}

func (perfectSource) Quals(_ string, barcodeLen, umiLen int) ([]byte, []byte) {
	return PerfectQual(barcodeLen), PerfectQual(umiLen)
}

type mapSource struct {
	m map[string]bqmap.Quals
}

func (s *mapSource) Quals(name string, barcodeLen, umiLen int) ([]byte, []byte) {
	quals, ok := s.m[name]
	if !ok {
		return PerfectQual(barcodeLen), PerfectQual(umiLen)
	}
	umiQual := quals.UMI
	if umiQual == nil {
		// A BQ token may carry barcode qualities without UMI qualities.
		umiQual = PerfectQual(umiLen)
	}
	return quals.CB, umiQual
}
