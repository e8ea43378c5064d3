// Package fcs decodes Flow Cytometry Standard (FCS) data sets.
//
// An FCS file starts with a fixed-width ASCII HEADER that locates the TEXT
// and DATA segments. TEXT is a delimiter-separated keyword dictionary which,
// among other things, declares how DATA is encoded ($DATATYPE, $BYTEORD,
// $PAR, $TOT). Parsing therefore runs strictly in order:
//
//	src := fcs.NewStreamSource(file)
//	doc, err := fcs.Parse(ctx, src)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(doc.TotalEvents(), doc.ValueCount())
//
// Inputs are abstracted by ByteRangeSource; StreamSource, BytesSource and
// ReaderAtSource cover files, buffers and shared positional readers.
//
// # Errors
//
// Failures wrap one of the Err* sentinels (ErrMalformedHeader,
// ErrMissingRequiredKeyword, ErrTruncatedDataSegment, ...) and name the
// offending keyword or byte range.
//
// # Limitations
//
// ASCII ($DATATYPE=A) data and chained data sets ($NEXTDATA) are not
// decoded; the offset of a chained set is reported by Document.NextData.
package fcs
