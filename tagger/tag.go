package tagger

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/tagbam/encoding/bqmap"
	"github.com/pkg/errors"
)

// Opts configure a tagging run.
type Opts struct {
	// Input is the BAM file to read. Required.
	Input string
	// Output is the BAM file to write. Exactly one of Output and
	// InPlace must be set.
	Output string
	// InPlace rewrites Input through a hidden temp file in its
	// directory, then renames it over the input. Requires local paths.
	InPlace bool
	// SkipUnparseable passes reads whose names do not match the grammar
	// through untagged instead of failing the run.
	SkipUnparseable bool
	// FastqBQ is an optional FASTQ (plain, gzip, or bgzip) whose
	// headers carry |BQ: tokens with measured barcode/UMI qualities.
	FastqBQ string
	// FastqBQCache is an optional cache file for FastqBQ: read if it
	// exists, created otherwise. Requires FastqBQ.
	FastqBQCache string
	// Threads is the worker count for BAM and bgzip
	// compression/decompression. Values below 1 mean 1 (no pooling).
	Threads int
}

// Counters summarize a run.
type Counters struct {
	Total, Tagged, Skipped uint64
}

// Tag streams every record of opts.Input through the tagger and writes
// the result, preserving record order exactly. On success it returns
// the final counters; on failure the counters reflect progress so far.
func Tag(ctx context.Context, opts Opts) (counters Counters, err error) {
	if (opts.Output == "") == !opts.InPlace {
		return counters, errors.New("exactly one of Output and InPlace must be set")
	}
	if opts.FastqBQCache != "" && opts.FastqBQ == "" {
		return counters, errors.New("FastqBQCache requires FastqBQ")
	}
	threads := opts.Threads
	if threads < 1 {
		threads = 1
	}

	var quals map[string]bqmap.Quals
	if opts.FastqBQ != "" {
		if quals, err = bqmap.Load(ctx, opts.FastqBQ, opts.FastqBQCache, threads); err != nil {
			return counters, err
		}
	}

	in, err := file.Open(ctx, opts.Input)
	if err != nil {
		return counters, errors.Wrapf(err, "opening input BAM %s", opts.Input)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = errors.Wrapf(e, "closing input BAM %s", opts.Input)
		}
	}()
	br, err := bam.NewReader(in.Reader(ctx), threads)
	if err != nil {
		return counters, errors.Wrapf(err, "reading input BAM %s", opts.Input)
	}
	defer func() {
		if e := br.Close(); e != nil && err == nil {
			err = errors.Wrapf(e, "closing input BAM %s", opts.Input)
		}
	}()
	header := br.Header().Clone()

	// In-place mode writes next to the input so that the final rename
	// stays on one filesystem and is atomic where the platform allows.
	outputPath := opts.Output
	if opts.InPlace {
		dir, base := filepath.Split(opts.Input)
		outputPath = filepath.Join(dir, "."+base+".tmp")
	}
	out, err := file.Create(ctx, outputPath)
	if err != nil {
		return counters, errors.Wrapf(err, "creating output BAM %s", outputPath)
	}
	bw, err := bam.NewWriter(out.Writer(ctx), header, threads)
	if err != nil {
		_ = out.Close(ctx)
		return counters, errors.Wrapf(err, "writing output BAM %s", outputPath)
	}

	tg := &Tagger{Quals: NewQualSource(quals)}
	streamErr := stream(br, bw, tg, opts, &counters)
	// The writer must be fully flushed and the file closed before any
	// rename, or trailing bgzf blocks are lost.
	if e := bw.Close(); e != nil && streamErr == nil {
		streamErr = errors.Wrapf(e, "closing output BAM %s", outputPath)
	}
	if e := out.Close(ctx); e != nil && streamErr == nil {
		streamErr = errors.Wrapf(e, "closing output BAM %s", outputPath)
	}
	if streamErr != nil {
		if opts.InPlace {
			// The input is untouched; the incomplete temp file has no
			// recovery value before the rename.
			if e := os.Remove(outputPath); e != nil {
				log.Error.Printf("removing temp file %s: %v", outputPath, e)
			}
		}
		return counters, streamErr
	}

	if opts.InPlace {
		// The single destructive step. On failure the temp file is left
		// behind for recovery; the input is never deleted first.
		if e := os.Rename(outputPath, opts.Input); e != nil {
			return counters, errors.Wrapf(e, "replacing input with tagged version (temp file %s left in place)", outputPath)
		}
		log.Printf("in-place tagging complete: %d reads processed, %d tagged, %d skipped",
			counters.Total, counters.Tagged, counters.Skipped)
	} else {
		log.Printf("processed %d reads: %d tagged, %d skipped",
			counters.Total, counters.Tagged, counters.Skipped)
	}
	return counters, nil
}

func stream(br *bam.Reader, bw *bam.Writer, tg *Tagger, opts Opts, counters *Counters) error {
	for {
		rec, err := br.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "reading record from %s", opts.Input)
		}
		counters.Total++

		outcome, tagErr := tg.Tag(rec)
		switch {
		case outcome == SkippedUnparseable && opts.SkipUnparseable:
			log.Printf("skipping read with unparseable name: %v", tagErr)
			counters.Skipped++
		case tagErr != nil:
			return errors.Wrapf(tagErr, "read %q", rec.Name)
		case outcome == SkippedPreTagged:
			log.Printf("read %q already has CB/CY/UB/UY tags, skipping", rec.Name)
			counters.Skipped++
		default:
			counters.Tagged++
		}

		if err := bw.Write(rec); err != nil {
			return errors.Wrapf(err, "writing record %q", rec.Name)
		}
	}
}
