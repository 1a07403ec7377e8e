package core

// dispatcher.go drives a registered converter against a byte stream.
//
// Lookup always happens before any byte reaches the output, so a missing
// converter never leaves partial output behind. Converter failures are
// wrapped in ConversionFailedError; failed writes to the output are reported
// as TransportFailedError so the HTTP layer can tell a broken client
// connection from a broken document.

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// Lookup is the read-only view of a registry the dispatcher needs.
type Lookup interface {
	Lookup(opts ConversionOptions) (Converter, bool)
}

// Producer writes a converted document into sink.
// It runs at most once.
type Producer func(ctx context.Context, sink io.Writer) error

// Dispatcher resolves converters and runs them.
type Dispatcher struct {
	registry Lookup
}

// NewDispatcher creates a dispatcher backed by registry.
func NewDispatcher(registry Lookup) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Plan looks up the converter for opts and returns a producer bound to src.
// Returns UnsupportedConversionError if no converter is registered.
func (d *Dispatcher) Plan(opts ConversionOptions, src Source) (Producer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	conv, ok := d.registry.Lookup(opts)
	if !ok {
		return nil, &UnsupportedConversionError{Options: opts}
	}

	var used bool
	return func(ctx context.Context, sink io.Writer) error {
		if used {
			return &ConversionFailedError{Options: opts, Cause: errors.New("source already consumed")}
		}
		used = true
		return run(ctx, conv, opts, src, sink)
	}, nil
}

// Dispatch converts src into dst using the converter registered for opts.
func (d *Dispatcher) Dispatch(ctx context.Context, opts ConversionOptions, src Source, dst io.Writer) error {
	produce, err := d.Plan(opts, src)
	if err != nil {
		return err
	}
	return produce(ctx, dst)
}

// DispatchBuffered converts src fully into memory and returns the bytes.
func (d *Dispatcher) DispatchBuffered(ctx context.Context, opts ConversionOptions, src Source) ([]byte, error) {
	produce, err := d.Plan(opts, src)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := produce(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BufferedResult is a fully materialized conversion.
type BufferedResult struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ConvertToPDF converts an ODT document to PDF in memory.
// The result is named after the source with ".pdf" appended.
func (d *Dispatcher) ConvertToPDF(ctx context.Context, name string, body io.Reader) (*BufferedResult, error) {
	opts := OptionsFrom(KindODT).Into(FormatPDF)

	data, err := d.DispatchBuffered(ctx, opts, Source{Body: body, Name: name})
	if err != nil {
		return nil, err
	}

	return &BufferedResult{
		Data:        data,
		Filename:    name + "." + FormatPDF.Extension,
		ContentType: FormatPDF.MIMEType,
	}, nil
}

// run invokes conv and classifies its failure.
func run(ctx context.Context, conv Converter, opts ConversionOptions, src Source, sink io.Writer) error {
	tw := &trackingWriter{w: sink}

	err := conv.Convert(ctx, src, tw, opts)
	if err == nil {
		return nil
	}

	if tw.err != nil {
		return &TransportFailedError{Cause: tw.err}
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return &TransportFailedError{Cause: err}
	}
	var cf *ConversionFailedError
	if errors.As(err, &cf) {
		return err
	}
	return &ConversionFailedError{Options: opts, Cause: err}
}

// trackingWriter remembers the first write error of the underlying sink.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}
