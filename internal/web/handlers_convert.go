package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/docconvert/internal/core"
	"github.com/JonMunkholm/docconvert/internal/logging"
	mw "github.com/JonMunkholm/docconvert/internal/web/middleware"
)

// historyTimeout bounds recording one history entry.
const historyTimeout = 5 * time.Second

// upload is the document part of a conversion request.
type upload struct {
	Body        io.Reader
	Name        string
	ContentType string
}

// handleConvert streams the uploaded document converted to {outputFormat}.
//
// Everything that can be rejected is rejected before the converter runs:
// the format token, the declared type, the request shape and the pair.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	target, err := core.ResolveTargetFormat(chi.URLParam(r, "outputFormat"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	op := core.ParseOperation(r.URL.Query().Get("operation"))

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Convert.MaxFileSize)
	up, err := openUpload(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	kind, err := core.ResolveSourceKind(up.ContentType)
	if err != nil {
		respondError(w, r, err)
		return
	}

	req := core.ConversionRequest{Name: up.Name, ContentType: up.ContentType, Operation: op, Body: up.Body}
	if err := req.Validate(); err != nil {
		respondError(w, r, err)
		return
	}

	body, err := nonEmpty(up.Body)
	if err != nil {
		respondError(w, r, err)
		return
	}
	counted := core.NewCountingReader(body)

	opts := core.OptionsFrom(kind).Into(target)
	produce, err := s.dispatcher.Plan(opts, core.Source{
		Body:    counted,
		Name:    up.Name,
		Charset: core.CharsetParam(up.ContentType),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	release, err := s.acquire(w, r)
	if err != nil {
		return
	}
	defer release()

	id := uuid.NewString()
	ctx, cancel := context.WithTimeout(withRequestMetadata(r.Context(), r, id), s.cfg.Convert.Timeout)
	defer cancel()

	logger := logging.WithFields(ctx, "from", opts.From, "to", opts.To.Name)
	logger.Debug("conversion started", "filename", up.Name, "operation", op)

	resp := core.BuildResponse(target, produce, op == core.OperationDownload, up.Name)
	sink := newResponseSink(w, resp, id, s.cfg.Convert.StreamBuffer)
	err = resp.Stream(ctx, sink)

	entry := core.NewHistoryEntry(ctx, opts, up.Name, op)
	entry.Finish(err, counted.Count(), sink.Written(), started)
	s.recordHistory(ctx, entry)

	if err == nil {
		logger.Info("conversion finished",
			"bytes_in", entry.BytesIn,
			"bytes_out", entry.BytesOut,
			"duration_ms", entry.DurationMS,
		)
		return
	}

	if !sink.Committed() {
		w.Header().Set(mw.ConversionIDHeader, id)
		respondError(w, r, err)
		return
	}

	// Headers are gone; break the connection so the client cannot mistake
	// the partial body for a complete document.
	logger.Error("conversion failed mid-stream",
		"error", err,
		"bytes_out", entry.BytesOut,
	)
	panic(http.ErrAbortHandler)
}

// handleConvertToPDF converts an ODT document to a materialized PDF.
// The body is either the raw document or JSON {"filename","content"}.
func (s *Server) handleConvertToPDF(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Convert.MaxFileSize)
	name, body, err := pdfRequestBody(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	body, err = nonEmpty(body)
	if err != nil {
		respondError(w, r, err)
		return
	}
	counted := core.NewCountingReader(body)

	release, err := s.acquire(w, r)
	if err != nil {
		return
	}
	defer release()

	id := uuid.NewString()
	ctx, cancel := context.WithTimeout(withRequestMetadata(r.Context(), r, id), s.cfg.Convert.Timeout)
	defer cancel()
	w.Header().Set(mw.ConversionIDHeader, id)

	opts := core.OptionsFrom(core.KindODT).Into(core.FormatPDF)
	result, err := s.dispatcher.ConvertToPDF(ctx, name, counted)

	entry := core.NewHistoryEntry(ctx, opts, name, core.OperationDownload)
	var out int64
	if result != nil {
		out = int64(len(result.Data))
	}
	entry.Finish(err, counted.Count(), out, started)
	s.recordHistory(ctx, entry)

	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", core.AttachmentDisposition(result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		logging.FromContext(ctx).Warn("write PDF response", "error", err)
	}
}

// acquire takes a conversion slot. On failure the response has been written.
func (s *Server) acquire(w http.ResponseWriter, r *http.Request) (func(), error) {
	release, err := s.limiter.Hold(r.Context())
	if err != nil {
		if errors.Is(err, core.ErrTooManyConversions) {
			w.Header().Set("Retry-After", strconv.Itoa(int(s.cfg.Convert.MaxWaitTime.Seconds())+1))
		}
		respondError(w, r, err)
		return nil, err
	}
	return release, nil
}

// recordHistory stores entry. Failures are logged and never reach the client.
func (s *Server) recordHistory(ctx context.Context, entry core.HistoryEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if err := s.history.Record(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn("record conversion history", "error", err)
	}
}

// openUpload locates the document in the request. A multipart/form-data
// body is read part by part until the "file" part; any other body is the
// document itself, named by the filename query parameter.
func openUpload(r *http.Request) (*upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return &upload{
			Body:        r.Body,
			Name:        core.CleanName(r.URL.Query().Get("filename")),
			ContentType: r.Header.Get("Content-Type"),
		}, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, &core.RequestError{Err: fmt.Errorf("read multipart body: %w", err)}
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, &core.RequestError{Err: errors.New(`multipart body has no "file" part`)}
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, fmt.Errorf("read multipart body: %w", err)
			}
			return nil, &core.RequestError{Err: fmt.Errorf("read multipart body: %w", err)}
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		name := part.FileName()
		if name == "" {
			name = r.URL.Query().Get("filename")
		}
		return &upload{
			Body:        part,
			Name:        core.CleanName(name),
			ContentType: part.Header.Get("Content-Type"),
		}, nil
	}
}

// pdfRequestBody returns the logical name and document of a convertToPdf
// request. Raw bodies may be untyped or application/octet-stream; any other
// declared type must be ODT.
func pdfRequestBody(r *http.Request) (string, io.Reader, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)

	switch mediaType {
	case "application/json":
		var req core.PDFRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return "", nil, err
			}
			return "", nil, &core.RequestError{Err: fmt.Errorf("decode JSON body: %w", err)}
		}
		if err := req.Validate(); err != nil {
			return "", nil, err
		}
		data, err := req.Decode()
		if err != nil {
			return "", nil, err
		}
		return core.CleanName(req.Filename), bytes.NewReader(data), nil

	case "", "application/octet-stream":

	default:
		kind, err := core.ResolveSourceKind(contentType)
		if err != nil {
			return "", nil, err
		}
		if kind != core.KindODT {
			return "", nil, &core.UnsupportedConversionError{Options: core.OptionsFrom(kind).Into(core.FormatPDF)}
		}
	}
	return core.CleanName(r.URL.Query().Get("filename")), r.Body, nil
}

// nonEmpty fails with core.ErrEmptyDocument when r has no bytes.
func nonEmpty(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	if _, err := br.Peek(1); err != nil {
		if err == io.EOF {
			return nil, core.ErrEmptyDocument
		}
		return nil, err
	}
	return br, nil
}
