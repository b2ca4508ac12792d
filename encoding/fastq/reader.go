package fastq

import (
	"bufio"
	"io"
	"io/ioutil"

	"github.com/grailbio/hts/bgzf"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

const (
	gzipID1      = 0x1f
	gzipID2      = 0x8b
	gzipFlgExtra = 0x04
)

// NewReader wraps r according to its framing: bgzip data is decoded
// with up to threads workers, single-stream gzip serially, and anything
// else is passed through verbatim. The framing never changes the bytes
// delivered, only the throughput. Close releases decompression state;
// closing the underlying stream remains the caller's job.
func NewReader(r io.Reader, threads int) (io.ReadCloser, error) {
	if threads < 1 {
		threads = 1
	}
	br := bufio.NewReader(r)
	hdr, err := br.Peek(18)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "detecting FASTQ framing")
	}
	switch {
	case isBGZF(hdr):
		z, err := bgzf.NewReader(br, threads)
		if err != nil {
			return nil, errors.Wrap(err, "opening bgzip FASTQ")
		}
		return z, nil
	case isGzip(hdr):
		z, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "opening gzip FASTQ")
		}
		return z, nil
	default:
		return ioutil.NopCloser(br), nil
	}
}

func isGzip(hdr []byte) bool {
	return len(hdr) >= 2 && hdr[0] == gzipID1 && hdr[1] == gzipID2
}

// isBGZF reports whether hdr opens a BGZF block: a gzip member with
// FEXTRA set and the "BC" subfield in its standard position. Plain gzip
// sources fail this check and decode serially.
func isBGZF(hdr []byte) bool {
	return len(hdr) >= 18 && isGzip(hdr) && hdr[3]&gzipFlgExtra != 0 &&
		hdr[12] == 'B' && hdr[13] == 'C'
}
