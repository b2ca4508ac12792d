package bqmap

import (
	"bufio"
	"encoding/binary"
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// cacheMagic identifies the cache format and version. The layout after
// the magic is: a u64 entry count, then per entry a u64-length-prefixed
// read name, a u64-length-prefixed CB quality string, a one-byte UMI
// presence flag, and (when the flag is 1) a u64-length-prefixed UMI
// quality string. All integers are little-endian. A layout change
// requires a new magic and an explicit cache rebuild.
var cacheMagic = [8]byte{'T', 'B', 'Q', 'M', 'A', 'P', '0', '1'}

// WriteCache serializes m to w. Entries are written in map iteration
// order; the format is keyed, not ordered.
func WriteCache(w io.Writer, m map[string]Quals) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(cacheMagic[:]); err != nil {
		return errors.Wrap(err, "writing cache header")
	}
	if err := writeUint64(bw, uint64(len(m))); err != nil {
		return errors.Wrap(err, "writing cache entry count")
	}
	for name, quals := range m {
		if err := writeBytes(bw, []byte(name)); err != nil {
			return errors.Wrap(err, "writing cache read name")
		}
		if err := writeBytes(bw, quals.CB); err != nil {
			return errors.Wrap(err, "writing cache CB qualities")
		}
		if quals.UMI == nil {
			if err := bw.WriteByte(0); err != nil {
				return errors.Wrap(err, "writing cache UMI presence")
			}
			continue
		}
		if err := bw.WriteByte(1); err != nil {
			return errors.Wrap(err, "writing cache UMI presence")
		}
		if err := writeBytes(bw, quals.UMI); err != nil {
			return errors.Wrap(err, "writing cache UMI qualities")
		}
	}
	return errors.Wrap(bw.Flush(), "flushing cache")
}

// ReadCache decodes a cache written by WriteCache. A magic mismatch, a
// truncated stream, or a non-UTF-8 read name fails the load; callers
// must not fall back to re-parsing the FASTQ source.
func ReadCache(r io.Reader) (map[string]Quals, error) {
	br := bufio.NewReader(r)
	var magic [8]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, errors.Wrap(err, "reading cache header")
	}
	if magic != cacheMagic {
		return nil, errors.Errorf("invalid cache header %q", magic[:])
	}
	count, err := readUint64(br)
	if err != nil {
		return nil, errors.Wrap(err, "reading cache entry count")
	}
	m := make(map[string]Quals, count)
	for i := uint64(0); i < count; i++ {
		name, err := readBytes(br)
		if err != nil {
			return nil, errors.Wrap(err, "reading cache read name")
		}
		if !utf8.Valid(name) {
			return nil, errors.Errorf("cache contains non-UTF-8 read name %q", name)
		}
		cb, err := readBytes(br)
		if err != nil {
			return nil, errors.Wrap(err, "reading cache CB qualities")
		}
		flag, err := br.ReadByte()
		if err != nil {
			return nil, errors.Wrap(err, "reading cache UMI presence")
		}
		quals := Quals{CB: cb}
		if flag == 1 {
			if quals.UMI, err = readBytes(br); err != nil {
				return nil, errors.Wrap(err, "reading cache UMI qualities")
			}
		}
		m[string(name)] = quals
	}
	return m, nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := writeUint64(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
