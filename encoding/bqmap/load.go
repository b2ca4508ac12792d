package bqmap

import (
	"context"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/tagbam/encoding/fastq"
	"github.com/pkg/errors"
)

// Load builds the read-name -> Quals map for the given FASTQ quality
// source. When cachePath is nonempty and the file exists, the cache is
// decoded instead and the FASTQ is never opened; nothing ties a cache
// to its source, so cache-path hygiene is the caller's responsibility.
// When cachePath is nonempty and absent, the parsed map is persisted
// there before returning. threads bounds the worker pool used to decode
// a bgzip-compressed source; it has no effect on the resulting map.
func Load(ctx context.Context, fastqPath, cachePath string, threads int) (map[string]Quals, error) {
	if cachePath != "" {
		if _, err := file.Stat(ctx, cachePath); err == nil {
			return loadCacheFile(ctx, cachePath)
		}
	}
	m, err := parseSource(ctx, fastqPath, threads)
	if err != nil {
		return nil, err
	}
	if cachePath != "" {
		if err := writeCacheFile(ctx, cachePath, m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func loadCacheFile(ctx context.Context, path string) (m map[string]Quals, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening BQ cache %s", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			m, err = nil, errors.Wrapf(e, "closing BQ cache %s", path)
		}
	}()
	if m, err = ReadCache(in.Reader(ctx)); err != nil {
		return nil, errors.Wrapf(err, "reading BQ cache %s", path)
	}
	log.Printf("loaded %d BQ entries from cache %s", len(m), path)
	return m, nil
}

func parseSource(ctx context.Context, path string, threads int) (m map[string]Quals, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening FASTQ %s", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			m, err = nil, errors.Wrapf(e, "closing FASTQ %s", path)
		}
	}()
	r, err := fastq.NewReader(in.Reader(ctx), threads)
	if err != nil {
		return nil, errors.Wrapf(err, "opening FASTQ %s", path)
	}
	defer func() {
		if e := r.Close(); e != nil && err == nil {
			m, err = nil, errors.Wrapf(e, "closing FASTQ %s", path)
		}
	}()

	// Only the header of each 4-line block is inspected; the three
	// follower lines are consumed to keep the cursor aligned.
	m = map[string]Quals{}
	sc := fastq.NewScanner(r, fastq.ID)
	var read fastq.Read
	for sc.Scan(&read) {
		if quals, ok := ParseTag(read.ID); ok {
			m[readName(read.ID)] = quals
		}
	}
	if e := sc.Err(); e != nil {
		return nil, errors.Wrapf(e, "reading FASTQ %s", path)
	}
	log.Printf("parsed %d BQ entries from %s", len(m), path)
	return m, nil
}

func writeCacheFile(ctx context.Context, path string, m map[string]Quals) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "creating BQ cache %s", path)
	}
	defer func() {
		if e := out.Close(ctx); e != nil && err == nil {
			err = errors.Wrapf(e, "closing BQ cache %s", path)
		}
	}()
	if err = WriteCache(out.Writer(ctx), m); err != nil {
		return errors.Wrapf(err, "writing BQ cache %s", path)
	}
	log.Printf("wrote %d BQ entries to cache %s", len(m), path)
	return nil
}

// readName derives the map key from a FASTQ header: the leading '@' is
// stripped when present and the name runs to the first whitespace.
func readName(header string) string {
	name := strings.TrimPrefix(header, "@")
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
