package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"tmpl-backend/internal/core"
	"tmpl-backend/internal/core/types"
)

const (
	DocumentField   = "userpdf"
	VisualizeAction = "Visualize"

	// Room for the text fields and multipart framing on top of the document.
	formOverheadBytes = 1 << 20
	maxFieldBytes     = 4096
)

type SubmissionForm struct {
	Mode   string `schema:"modes"`
	K      string `schema:"ks"`
	Dist   string `schema:"dist"`
	Num    string `schema:"num"`
	Submit string `schema:"submit"`
}

func (f SubmissionForm) raw() types.RawParameters {
	return types.RawParameters{Mode: f.Mode, K: f.K, Dist: f.Dist, Num: f.Num}
}

func (f SubmissionForm) visualize() bool {
	return strings.TrimSpace(f.Submit) == VisualizeAction
}

// readSubmission streams a multipart/form-data body. The document part is
// staged to disk as it arrives; text fields are decoded into a
// SubmissionForm. Only the first non-empty document part is kept. A body whose
// declared length is already over the limit is refused before anything is
// read; an upload that crosses the limit while streaming is discarded and
// reported as a SizeLimitError straight away.
func (s *BackendService) readSubmission(w http.ResponseWriter, r *http.Request) (SubmissionForm, *types.UploadedDocument, error) {
	var form SubmissionForm

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return form, nil, CodedErrorf(http.StatusBadRequest, "expected a multipart/form-data request")
	}

	maxBodyBytes := int64(s.maxUploadBytes) + formOverheadBytes
	if r.ContentLength > maxBodyBytes {
		return form, nil, s.uploadError(&core.SizeLimitError{SizeBytes: uint64(r.ContentLength), MaxBytes: s.maxUploadBytes})
	}
	// Chunked bodies have no declared length and are capped while streaming.
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	reader, err := r.MultipartReader()
	if err != nil {
		return form, nil, CodedErrorf(http.StatusBadRequest, "unable to read multipart body: %v", err)
	}

	var doc *types.UploadedDocument
	fail := func(err error) (SubmissionForm, *types.UploadedDocument, error) {
		if doc != nil {
			s.allocator.Discard(*doc)
		}
		return form, nil, s.uploadError(err)
	}

	values := url.Values{}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(err)
		}

		name := part.FormName()
		switch {
		case name == DocumentField && part.FileName() != "" && doc == nil:
			staged, err := s.allocator.Stage(part, part.FileName(), s.maxUploadBytes)
			if err != nil {
				return fail(err)
			}
			doc = &staged
			if staged.SizeBytes > s.maxUploadBytes {
				return fail(&core.SizeLimitError{SizeBytes: staged.SizeBytes, MaxBytes: s.maxUploadBytes})
			}
			if staged.SizeBytes == 0 {
				s.allocator.Discard(staged)
				doc = nil
			}
		case name == "" || part.FileName() != "":
			if _, err := io.Copy(io.Discard, part); err != nil {
				return fail(err)
			}
		default:
			data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			if err != nil {
				return fail(err)
			}
			if len(data) > maxFieldBytes {
				return fail(CodedErrorf(http.StatusBadRequest, "form field '%s' is too long", name))
			}
			values.Add(name, string(data))
		}
		part.Close()
	}

	if err := formDecoder.Decode(&form, values); err != nil {
		slog.Error("error decoding submission form", "error", err)
		return fail(CodedErrorf(http.StatusBadRequest, "unable to parse submission form"))
	}

	return form, doc, nil
}

func (s *BackendService) uploadError(err error) error {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return err
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return submissionError(&core.SizeLimitError{SizeBytes: uint64(maxErr.Limit) + 1, MaxBytes: s.maxUploadBytes}, false)
	}

	var sizeErr *core.SizeLimitError
	var wsErr *core.WorkspaceError
	if errors.As(err, &sizeErr) || errors.As(err, &wsErr) {
		return submissionError(err, false)
	}

	slog.Warn("error reading upload", "error", err)
	return CodedError(http.StatusBadRequest, fmt.Errorf("unable to read upload: %w", err))
}
