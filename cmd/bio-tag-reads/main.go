package main

/*
bio-tag-reads rewrites a BAM file by deriving cell barcode and UMI tags
from read names of the form {uuid}_{i7}-{i5}-{CBC}_{UMI}:

	CB:Z cell barcode (i7+i5+CBC concatenated)
	CY:Z cell barcode quality: all 'I' for perfect quality, or measured
	     qualities from a FASTQ with |BQ: header tokens
	UB:Z UMI sequence
	UY:Z UMI quality

Reads already carrying any of the four tags pass through unchanged.
*/

import (
	"flag"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/tagbam/tagger"
)

var (
	input           = flag.String("input", "", "Input BAM filename")
	output          = flag.String("output", "", "Output BAM filename. Exactly one of -output and -in-place is required")
	inPlace         = flag.Bool("in-place", false, "Modify the input BAM file in place")
	skipUnparseable = flag.Bool("skip-unparseable", false, "Skip reads with unparseable names instead of erroring")
	fastqBQ         = flag.String("fastq-bq", "", "Optional FASTQ (plain, gzip, or bgzip) with |BQ: tokens in headers for barcode qualities (loads into memory)")
	fastqBQCache    = flag.String("fastq-bq-cache", "", "Optional cache file for -fastq-bq: loaded if present, otherwise created. Requires -fastq-bq")
	threads         = flag.Int("threads", 4, "Number of threads for BAM and bgzip compression/decompression")
)

func main() {
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() > 0 {
		a := flag.Args()
		log.Fatalf("unparsed flags, please check flag syntax: '%s'", strings.Join(a[len(a)-flag.NArg():], " "))
	}
	if *input == "" {
		log.Fatalf("-input is required")
	}
	if (*output == "") == !*inPlace {
		log.Fatalf("exactly one of -output and -in-place must be given")
	}
	if *fastqBQCache != "" && *fastqBQ == "" {
		log.Fatalf("-fastq-bq-cache requires -fastq-bq")
	}

	opts := tagger.Opts{
		Input:           *input,
		Output:          *output,
		InPlace:         *inPlace,
		SkipUnparseable: *skipUnparseable,
		FastqBQ:         *fastqBQ,
		FastqBQCache:    *fastqBQCache,
		Threads:         *threads,
	}
	ctx := vcontext.Background()
	if _, err := tagger.Tag(ctx, opts); err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}
