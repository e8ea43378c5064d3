package fcs

import (
	"context"
	"fmt"
	"log/slog"
	"math/bits"
)

// Decoder turns a ByteRangeSource into a Document. A Decoder holds no
// per-parse state, so one value can serve concurrent parses of different
// sources.
type Decoder struct {
	logger *slog.Logger
}

// NewDecoder creates a decoder that logs to logger, or to slog.Default when
// logger is nil.
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger}
}

// Parse decodes the data set at the start of src with a default decoder.
func Parse(ctx context.Context, src ByteRangeSource) (*Document, error) {
	return NewDecoder(nil).Parse(ctx, src)
}

// Parse reads HEADER, TEXT and DATA in that order. Any failure aborts the
// whole parse; a partially decoded Document is never returned.
func (dec *Decoder) Parse(ctx context.Context, src ByteRangeSource) (*Document, error) {
	return dec.parseAt(ctx, src, 0)
}

// parseAt decodes the data set whose HEADER starts at offset. Following
// $NEXTDATA would mean calling this again at the chained offset.
func (dec *Decoder) parseAt(ctx context.Context, src ByteRangeSource, offset uint64) (*Document, error) {
	dec.logger.DebugContext(ctx, "Starting FCS parsing", "offset", offset)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	header, err := ParseHeader(src, offset)
	if err != nil {
		return nil, err
	}
	dec.logger.DebugContext(ctx, "Parsed header",
		"version", header.Version,
		"text_start", header.TextStart, "text_end", header.TextEnd,
		"data_start", header.DataStart, "data_end", header.DataEnd,
		"has_analysis", header.HasAnalysis())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rawText, err := src.ReadRange(offset, header.TextStart, header.TextEnd)
	if err != nil {
		return nil, fmt.Errorf("reading text segment: %w", err)
	}
	keywords, err := ParseText(rawText)
	if err != nil {
		return nil, fmt.Errorf("parsing text segment: %w", err)
	}
	dec.logger.DebugContext(ctx, "Parsed text segment", "keywords", keywords.Len())

	parCount, err := keywords.ParametersCount()
	if err != nil {
		return nil, err
	}
	total, err := keywords.TotalEvents()
	if err != nil {
		return nil, err
	}
	dataType, err := keywords.DataType()
	if err != nil {
		return nil, err
	}
	byteOrder, err := keywords.ByteOrder()
	if err != nil {
		return nil, err
	}
	nextData, err := keywords.NextData()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rawData, err := dec.readData(ctx, src, header, keywords)
	if err != nil {
		return nil, err
	}
	data, err := DecodeData(rawData, dataType, byteOrder)
	if err != nil {
		return nil, fmt.Errorf("decoding data segment: %w", err)
	}

	hi, want := bits.Mul64(parCount, total)
	if hi != 0 || want != uint64(data.Len()) {
		return nil, fmt.Errorf("%w: decoded %d values, %s=%d x %s=%d", ErrDataLengthMismatch, data.Len(), KeywordPar, parCount, KeywordTot, total)
	}

	if nextData != 0 {
		dec.logger.WarnContext(ctx, "Chained data set is not followed", "next_data", nextData)
	}
	dec.logger.DebugContext(ctx, "Finished FCS parsing",
		"data_type", dataType.String(), "byte_order", byteOrder.String(), "events", total)

	return &Document{
		header:   header,
		keywords: keywords,
		data:     data,
		parCount: parCount,
		total:    total,
		nextData: nextData,
	}, nil
}

// readData fetches the DATA segment. Files larger than the HEADER offset
// fields can express store zeros there and carry the real range in
// $BEGINDATA/$ENDDATA.
func (dec *Decoder) readData(ctx context.Context, src ByteRangeSource, header Header, keywords *Keywords) ([]byte, error) {
	start, end := header.DataStart, header.DataEnd
	if start == 0 && end == 0 {
		kwStart, kwEnd, ok, err := keywords.dataRange()
		if err != nil {
			return nil, err
		}
		if ok && kwEnd != 0 {
			if kwStart > kwEnd {
				return nil, fmt.Errorf("%w: %s=%d after %s=%d", ErrInvalidKeywordValue, KeywordBeginData, kwStart, KeywordEndData, kwEnd)
			}
			dec.logger.DebugContext(ctx, "Using data range from text segment", "begin", kwStart, "end", kwEnd)
			start, end = kwStart, kwEnd
		}
	}
	if start == 0 && end == 0 {
		// No DATA segment at all.
		return nil, nil
	}
	raw, err := src.ReadRange(header.Offset, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading data segment: %w", err)
	}
	return raw, nil
}
