package tagger

import (
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

var (
	cbTag = sam.Tag{'C', 'B'}
	cyTag = sam.Tag{'C', 'Y'}
	ubTag = sam.Tag{'U', 'B'}
	uyTag = sam.Tag{'U', 'Y'}
)

// Outcome classifies what Tag did with a record.
type Outcome int

const (
	// Tagged means CB/CY/UB/UY aux fields were attached.
	Tagged Outcome = iota
	// SkippedPreTagged means the record already carried at least one of
	// the four tags and was left untouched.
	SkippedPreTagged
	// SkippedUnparseable means the read name did not match the grammar
	// and the record was left untouched.
	SkippedUnparseable
)

// Tagger derives CB/CY/UB/UY aux fields from read names. Quals must be
// non-nil. A Tagger holds no per-record state and may be shared.
type Tagger struct {
	Quals QualSource
}

// Tag decides the fate of a single record and, when the outcome is
// Tagged, appends the four aux fields in place:
//
//	CB:Z cell barcode (i7+i5+CBC concatenated)
//	CY:Z cell barcode quality
//	UB:Z UMI sequence
//	UY:Z UMI quality
//
// SkippedUnparseable is returned together with the decode error; the
// caller decides whether that is fatal for the run. Presence of any of
// the four tags blocks all four from being rewritten.
func (tg *Tagger) Tag(r *sam.Record) (Outcome, error) {
	for _, tag := range []sam.Tag{cbTag, cyTag, ubTag, uyTag} {
		if r.AuxFields.Get(tag) != nil {
			return SkippedPreTagged, nil
		}
	}
	name, err := ParseReadName(r.Name)
	if err != nil {
		return SkippedUnparseable, err
	}
	barcode := name.I7 + name.I5 + name.CBC
	barcodeQual, umiQual := tg.Quals.Quals(r.Name, len(barcode), len(name.UMI))
	for _, f := range []struct {
		tag sam.Tag
		val string
	}{
		{cbTag, barcode},
		{cyTag, string(barcodeQual)},
		{ubTag, name.UMI},
		{uyTag, string(umiQual)},
	} {
		aux, err := sam.NewAux(f.tag, f.val)
		if err != nil {
			return Tagged, errors.Wrapf(err, "creating %v tag for read %q", f.tag, r.Name)
		}
		r.AuxFields = append(r.AuxFields, aux)
	}
	return Tagged, nil
}
