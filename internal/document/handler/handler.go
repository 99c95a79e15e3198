// Package handler serves stateless document extraction over HTTP.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"suiverify/internal/document/models"
	dErrors "suiverify/pkg/domain-errors"
	"suiverify/pkg/platform/httputil"
	"suiverify/pkg/requestcontext"
)

// MaxUploadBytes bounds a single multipart upload held in memory.
const MaxUploadBytes = 10 << 20

// Extractor runs the extraction pipeline.
type Extractor interface {
	Extract(ctx context.Context, raw models.RawImage) (*models.Result, error)
}

type Handler struct {
	extractor Extractor
	logger    *slog.Logger
}

func New(extractor Extractor, logger *slog.Logger) *Handler {
	return &Handler{extractor: extractor, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/documents/extract", h.HandleExtract)
}

// FieldView is one resolved field in responses.
type FieldView struct {
	Value    string            `json:"value"`
	Strategy models.StrategyID `json:"strategy"`
}

// ResultView is the public form of an extraction result. OCR text stays
// server side.
type ResultView struct {
	DocumentType   string                         `json:"document_type"`
	Fields         map[models.FieldName]FieldView `json:"fields"`
	SuccessRatio   float64                        `json:"success_ratio"`
	CandidateCount int                            `json:"candidate_count"`
	Photo          []byte                         `json:"photo,omitempty"`
}

// NewResultView builds a ResultView; withPhoto adds the base64 JPEG crop.
func NewResultView(r *models.Result, withPhoto bool) *ResultView {
	if r == nil {
		return nil
	}
	view := &ResultView{
		DocumentType:   r.DocumentType,
		Fields:         make(map[models.FieldName]FieldView, len(r.Fields)),
		SuccessRatio:   r.SuccessRatio,
		CandidateCount: r.CandidateCount,
	}
	for name, f := range r.Fields {
		view.Fields[name] = FieldView{Value: f.Value, Strategy: f.Strategy}
	}
	if withPhoto && r.Photo != nil && r.Photo.Found {
		view.Photo = r.Photo.JPEG
	}
	return view
}

// HandleExtract implements POST /documents/extract.
//
// Input: multipart field "document", or a raw image body.
// Output: ResultView with the photo crop.
func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := ReadImage(r, "document")
	if err != nil {
		h.logger.WarnContext(ctx, "invalid document upload", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	result, err := h.extractor.Extract(ctx, raw)
	if err != nil {
		h.logger.ErrorContext(ctx, "document extraction failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, NewResultView(result, true))
}

// ReadImage reads one image from a multipart field or, for non-multipart
// requests, from the body.
func ReadImage(r *http.Request, field string) (models.RawImage, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return models.RawImage{}, readError(err)
		}
		if len(data) == 0 {
			return models.RawImage{}, dErrors.New(dErrors.CodeBadRequest, "image body is empty")
		}
		return models.RawImage{Data: data, MIMEType: mediaType}, nil
	}

	images, err := ReadImages(r, field, 1)
	if err != nil {
		return models.RawImage{}, err
	}
	return images[0], nil
}

// ReadImages reads up to max files from a multipart field.
func ReadImages(r *http.Request, field string, max int) ([]models.RawImage, error) {
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return nil, readError(err)
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "multipart field "+field+" is required")
	}
	if len(files) > max {
		return nil, dErrors.New(dErrors.CodeValidation, "too many files in "+field)
	}

	out := make([]models.RawImage, 0, len(files))
	for _, fh := range files {
		img, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

func readPart(fh *multipart.FileHeader) (models.RawImage, error) {
	f, err := fh.Open()
	if err != nil {
		return models.RawImage{}, readError(err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return models.RawImage{}, readError(err)
	}
	mimeType := fh.Header.Get("Content-Type")
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return models.RawImage{Data: data, MIMEType: mimeType}, nil
}

func readError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "upload exceeds the size limit")
	}
	return dErrors.Wrap(err, dErrors.CodeBadRequest, "could not read upload")
}
