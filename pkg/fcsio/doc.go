// Package fcsio opens, parses and exports FCS files.
//
// # Overview
//
// Package fcs decodes a single data set from a ByteRangeSource. This package
// adds the plumbing around it:
//
//   - Opening plain, zstd (.zst) and lz4 (.lz4) files
//   - A document cache keyed by path, size and modification time
//   - Summaries exported as JSON, YAML or CBOR
//   - A BLAKE3 digest of the decoded DATA values
//
// # Quick Start
//
//	doc, err := fcsio.ParseFile(ctx, "sample.fcs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(doc.TotalEvents())
//
// # Custom Parser Instance
//
//	parser := fcsio.NewParser(
//	    fcsio.WithLogger(logger),
//	    fcsio.WithCaching(time.Hour),
//	    fcsio.WithMaxEvents(10),
//	    fcsio.WithDigest(true),
//	)
//	summary, err := parser.SummarizeFile(ctx, "sample.fcs.zst")
//	out, err := fcsio.Marshal(summary, fcsio.FormatYAML)
//
// # Thread Safety
//
// A Parser may be shared between goroutines. Plain files are read through
// positional reads, so concurrent parses never contend on a file offset.
package fcsio
