package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dochandler "suiverify/internal/document/handler"
	docmodels "suiverify/internal/document/models"
	"suiverify/internal/kyc/models"
	"suiverify/internal/kyc/service"
	id "suiverify/pkg/domain"
	"suiverify/pkg/platform/httputil"
	"suiverify/pkg/requestcontext"
)

// Service drives the KYC session lifecycle.
type Service interface {
	Start(ctx context.Context, req service.StartRequest) (*models.Session, error)
	Get(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	SubmitDocument(ctx context.Context, sessionID id.SessionID, raw docmodels.RawImage) (*models.Session, error)
	RecordFaceMatch(ctx context.Context, sessionID id.SessionID, images [][]byte) (*models.Session, error)
	RequestCorrection(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	SubmitCorrection(ctx context.Context, sessionID id.SessionID, values map[docmodels.FieldName]string) (*models.Session, error)
	ConfirmAndPublish(ctx context.Context, sessionID id.SessionID) (*service.PublishResult, error)
}

// Handler exposes KYC sessions over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/kyc/sessions", func(r chi.Router) {
		r.Post("/", h.HandleStart)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Post("/document", h.HandleDocument)
			r.Post("/face", h.HandleFace)
			r.Post("/corrections/request", h.HandleRequestCorrection)
			r.Post("/corrections", h.HandleSubmitCorrection)
			r.Post("/confirm", h.HandleConfirm)
		})
	})
}

// HandleStart implements POST /kyc/sessions.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[StartSessionRequest](w, r, h.logger)
	if !ok {
		return
	}

	session, err := h.service.Start(ctx, service.StartRequest{
		SubjectID:        req.SubjectID,
		VerificationType: models.VerificationType(req.VerificationType),
	})
	if err != nil {
		h.fail(ctx, w, "failed to start session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, NewSessionResponse(session))
}

// HandleGet implements GET /kyc/sessions/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, "failed to load session", h.service.Get)
}

// HandleDocument implements POST /kyc/sessions/{id}/document.
func (h *Handler) HandleDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	raw, err := dochandler.ReadImage(r, "document")
	if err != nil {
		h.logger.WarnContext(ctx, "invalid document upload", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	session, err := h.service.SubmitDocument(ctx, sessionID, raw)
	if err != nil {
		h.fail(ctx, w, "failed to submit document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewSessionResponse(session))
}

// HandleFace implements POST /kyc/sessions/{id}/face with one or more
// multipart "face" images.
func (h *Handler) HandleFace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	uploads, err := dochandler.ReadImages(r, "face", service.MaxFaceImages)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid face upload", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	images := make([][]byte, 0, len(uploads))
	for _, u := range uploads {
		images = append(images, u.Data)
	}

	session, err := h.service.RecordFaceMatch(ctx, sessionID, images)
	if err != nil {
		h.fail(ctx, w, "failed to record face match", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewSessionResponse(session))
}

// HandleRequestCorrection implements POST /kyc/sessions/{id}/corrections/request.
func (h *Handler) HandleRequestCorrection(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, "failed to open correction round", h.service.RequestCorrection)
}

// HandleSubmitCorrection implements POST /kyc/sessions/{id}/corrections.
func (h *Handler) HandleSubmitCorrection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CorrectionRequest](w, r, h.logger)
	if !ok {
		return
	}

	session, err := h.service.SubmitCorrection(ctx, sessionID, req.Fields)
	if err != nil {
		h.fail(ctx, w, "failed to submit correction", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewSessionResponse(session))
}

// HandleConfirm implements POST /kyc/sessions/{id}/confirm. Repeating the
// call after a successful hand-off returns the same request.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	res, err := h.service.ConfirmAndPublish(ctx, sessionID)
	if err != nil {
		h.fail(ctx, w, "failed to confirm session", err)
		return
	}
	status := http.StatusAccepted
	if res.AlreadyPublished {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, NewConfirmResponse(res))
}

func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, msg string, call func(context.Context, id.SessionID) (*models.Session, error)) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	session, err := call(ctx, sessionID)
	if err != nil {
		h.fail(ctx, w, msg, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewSessionResponse(session))
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (id.SessionID, bool) {
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		ctx := r.Context()
		h.logger.WarnContext(ctx, "invalid session id", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return id.SessionID{}, false
	}
	return sessionID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	httputil.WriteError(w, err)
}
