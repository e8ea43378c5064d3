package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redpanda-data/benthos/v4/public/service"
	"github.com/twinfer/fcs-plugin/internal/rules"
	"github.com/twinfer/fcs-plugin/pkg/fcsio"
)

// FCSProcessor is a Benthos processor that decodes FCS payloads into
// structured summaries.
type FCSProcessor struct {
	config    FCSConfig
	parser    *fcsio.Parser
	checker   *rules.Checker
	logger    *service.Logger
	mParsed   *service.MetricCounter
	mErrors   *service.MetricCounter
	mFailures *service.MetricCounter
}

// FCSConfig contains configuration parameters for the FCS processor.
type FCSConfig struct {
	IncludeEvents bool     `json:"include_events" yaml:"include_events"`
	MaxEvents     int      `json:"max_events" yaml:"max_events"`
	Checks        []string `json:"checks" yaml:"checks"`
	Digest        bool     `json:"digest" yaml:"digest"`
}

func init() {
	err := service.RegisterProcessor(
		"fcs",
		fcsProcessorConfig(),
		func(conf *service.ParsedConfig, mgr *service.Resources) (service.Processor, error) {
			return newFCSProcessorFromConfig(conf, mgr)
		},
	)
	if err != nil {
		panic(err)
	}
}

func main() {
	service.RunCLI(context.Background())
}

// fcsProcessorConfig returns a config spec for an fcs processor.
func fcsProcessorConfig() *service.ConfigSpec {
	return service.NewConfigSpec().
		Summary("Decodes Flow Cytometry Standard (FCS) files into structured documents.").
		Description("Each message is treated as one FCS file, optionally zstd or lz4 compressed. The output replaces the payload with the HEADER offsets, TEXT keywords, parameter and gate tables, and optionally the event values. CEL checks run against every decoded document; a failing check sets an error on the message.").
		Field(service.NewBoolField("include_events").
			Description("Whether to include decoded event values in the output.").
			Default(false)).
		Field(service.NewIntField("max_events").
			Description("Maximum number of events to include when include_events is true. Zero includes all events.").
			Default(0)).
		Field(service.NewStringListField("checks").
			Description("CEL expressions that must evaluate to true for every document.").
			Example([]string{`parameters_count > 0`, `keywords.get("$CYT", "") != ""`}).
			Default([]string{})).
		Field(service.NewBoolField("digest").
			Description("Whether to add a BLAKE3 digest of the decoded DATA values.").
			Default(false)).
		Version("0.1.0")
}

// newFCSProcessorFromConfig creates a new FCSProcessor from a parsed config.
func newFCSProcessorFromConfig(conf *service.ParsedConfig, mgr *service.Resources) (*FCSProcessor, error) {
	includeEvents, err := conf.FieldBool("include_events")
	if err != nil {
		return nil, err
	}
	maxEvents, err := conf.FieldInt("max_events")
	if err != nil {
		return nil, err
	}
	if maxEvents < 0 {
		return nil, fmt.Errorf("max_events must not be negative, got %d", maxEvents)
	}
	checks, err := conf.FieldStringList("checks")
	if err != nil {
		return nil, err
	}
	digest, err := conf.FieldBool("digest")
	if err != nil {
		return nil, err
	}

	config := FCSConfig{
		IncludeEvents: includeEvents,
		MaxEvents:     maxEvents,
		Checks:        checks,
		Digest:        digest,
	}

	pool, err := rules.NewProgramPool()
	if err != nil {
		return nil, err
	}
	checker, err := rules.NewChecker(pool, checks)
	if err != nil {
		return nil, err
	}

	opts := []fcsio.Option{fcsio.WithoutCaching(), fcsio.WithDigest(digest)}
	if includeEvents {
		opts = append(opts, fcsio.WithMaxEvents(maxEvents))
	}

	logger := mgr.Logger()
	metrics := mgr.Metrics()

	return &FCSProcessor{
		config:    config,
		parser:    fcsio.NewParser(opts...),
		checker:   checker,
		logger:    logger,
		mParsed:   metrics.NewCounter("fcs_parsed_documents"),
		mErrors:   metrics.NewCounter("fcs_parse_errors"),
		mFailures: metrics.NewCounter("fcs_check_failures"),
	}, nil
}

// Process decodes one FCS file per message.
func (f *FCSProcessor) Process(ctx context.Context, msg *service.Message) (service.MessageBatch, error) {
	data, err := msg.AsBytes()
	if err != nil {
		f.logger.Errorf("Failed to get binary data from message: %v", err)
		f.mErrors.Incr(1)
		msg.SetError(fmt.Errorf("failed to get binary data from message: %w", err))
		return service.MessageBatch{msg}, nil
	}

	if len(data) == 0 {
		f.logger.Warn("Empty binary data provided")
		f.mErrors.Incr(1)
		msg.SetError(fmt.Errorf("empty binary data provided"))
		return service.MessageBatch{msg}, nil
	}

	doc, err := f.parser.ParseBytes(ctx, data)
	if err != nil {
		f.logger.Errorf("Failed to parse FCS data of size %d bytes: %v", len(data), err)
		f.mErrors.Incr(1)
		msg.SetError(fmt.Errorf("failed to parse FCS data of size %d bytes: %w", len(data), err))
		return service.MessageBatch{msg}, nil
	}

	summary, err := f.parser.Summarize(doc)
	if err != nil {
		f.logger.Errorf("Failed to summarize FCS document: %v", err)
		f.mErrors.Incr(1)
		msg.SetError(fmt.Errorf("failed to summarize FCS document: %w", err))
		return service.MessageBatch{msg}, nil
	}

	structured, err := toStructured(summary)
	if err != nil {
		f.mErrors.Incr(1)
		msg.SetError(err)
		return service.MessageBatch{msg}, nil
	}

	f.logger.Debugf("Successfully parsed FCS document with %d events", doc.TotalEvents())
	f.mParsed.Incr(1)

	newMsg := service.NewMessage(nil)
	newMsg.SetStructured(structured)

	// Copy metadata from original message
	_ = msg.MetaWalk(func(key, value string) error {
		newMsg.MetaSet(key, value)
		return nil
	})
	newMsg.MetaSet("fcs_version", strconv.FormatFloat(doc.Header().Version, 'f', -1, 64))
	newMsg.MetaSet("fcs_total_events", strconv.FormatUint(doc.TotalEvents(), 10))
	if summary.Digest != "" {
		newMsg.MetaSet("fcs_digest", summary.Digest)
	}

	if err := f.checker.Check(doc); err != nil {
		failed := rules.Failed(err)
		f.logger.Warnf("FCS document failed %d check(s): %v", len(failed), failed)
		f.mFailures.Incr(int64(len(failed)))
		if errors.Is(err, rules.ErrCheckFailed) {
			newMsg.SetError(fmt.Errorf("document checks failed: %w", err))
		} else {
			newMsg.SetError(fmt.Errorf("evaluating document checks: %w", err))
		}
	}

	return service.MessageBatch{newMsg}, nil
}

// toStructured converts a summary into the map form Benthos mappings expect.
func toStructured(s *fcsio.Summary) (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return out, nil
}

// Close the processor resources
func (f *FCSProcessor) Close(ctx context.Context) error {
	f.logger.Debug("Closing FCS processor")
	f.parser.ClearCache()
	return nil
}
