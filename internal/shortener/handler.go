package shortener

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sundayezeilo/tinylink/internal/errx"
	"github.com/sundayezeilo/tinylink/internal/httpx"
	"github.com/sundayezeilo/tinylink/internal/metrics"
	"github.com/sundayezeilo/tinylink/internal/view"
)

// Client-facing messages. Internal error details are only logged.
const (
	msgInvalid  = "Invalid link data."
	msgConflict = "Custom code already exists."
	msgNotFound = "Link not found."
	msgInternal = "Internal Server Error"

	displayTimeLayout = "2006-01-02 15:04:05 UTC"
)

// clientMessages are the validation failures whose text is shown as is.
var clientMessages = []error{ErrInvalidTargetURL, ErrInvalidCode, ErrReservedCode}

// invalidMessage returns the client text for an Invalid error. Store
// constraint failures carry driver text and get the generic message.
func invalidMessage(err error) string {
	for _, known := range clientMessages {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return msgInvalid
}

// HTTPCreateLinkRequest represents the JSON request body for creating a link.
type HTTPCreateLinkRequest struct {
	TargetURL  string  `json:"targetUrl"`
	CustomCode *string `json:"customCode,omitempty"`
}

// LinkResponse represents a link in JSON responses.
type LinkResponse struct {
	Code        string     `json:"code"`
	TargetURL   string     `json:"targetUrl"`
	TotalClicks int64      `json:"totalClicks"`
	LastClicked *time.Time `json:"lastClicked"`
	CreatedAt   time.Time  `json:"createdAt"`
	ShortURL    string     `json:"shortUrl"`
}

// Recorder receives link events for instrumentation.
type Recorder interface {
	LinkCreated()
	Redirect(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) LinkCreated()    {}
func (nopRecorder) Redirect(string) {}

// Handler provides HTTP handlers for the URL shortener service.
type Handler struct {
	service  Service
	logger   *zap.Logger
	views    *view.Renderer
	recorder Recorder
	site     view.Site
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service  Service
	Logger   *zap.Logger
	Views    *view.Renderer
	Recorder Recorder
	BaseURL  string // Base URL for constructing short URLs (e.g., "https://sho.rt")
	Version  string
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Handler{
		service:  cfg.Service,
		logger:   logger,
		views:    cfg.Views,
		recorder: recorder,
		site:     view.Site{BaseURL: cfg.BaseURL, Version: cfg.Version},
	}
}

func (h *Handler) shortURL(code string) string {
	return h.site.BaseURL + "/" + code
}

func (h *Handler) toResponse(link Link) LinkResponse {
	return LinkResponse{
		Code:        link.Code,
		TargetURL:   link.TargetURL,
		TotalClicks: link.TotalClicks,
		LastClicked: link.LastClicked,
		CreatedAt:   link.CreatedAt,
		ShortURL:    h.shortURL(link.Code),
	}
}

func (h *Handler) requestLogger(r *http.Request) *zap.Logger {
	return h.logger.With(
		zap.String("request_id", httpx.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

// CreateLink handles POST /api/links.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPCreateLinkRequest](w, r)
	if err != nil {
		logger.Warn("failed to decode request", zap.Error(err))
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	var customCode string
	if req.CustomCode != nil {
		customCode = *req.CustomCode
	}

	link, err := h.service.Create(r.Context(), CreateLinkRequest{
		TargetURL:  req.TargetURL,
		CustomCode: customCode,
	})
	if err != nil {
		h.writeAPIError(logger, w, err, customCode)
		return
	}

	h.recorder.LinkCreated()
	logger.Info("link created",
		zap.String("code", link.Code),
		zap.Bool("custom_code", customCode != ""),
	)

	httpx.WriteJSON(w, http.StatusCreated, h.toResponse(link))
}

// ListLinks handles GET /api/links.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.List(r.Context())
	if err != nil {
		h.writeAPIError(h.requestLogger(r), w, err, "")
		return
	}

	resp := make([]LinkResponse, 0, len(links))
	for _, link := range links {
		resp = append(resp, h.toResponse(link))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// GetLink handles GET /api/links/{code}.
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	link, err := h.service.Get(r.Context(), code)
	if err != nil {
		h.writeAPIError(h.requestLogger(r), w, err, code)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.toResponse(link))
}

// UpdateClicks handles PUT /api/links/{code}: one click is recorded without a redirect.
func (h *Handler) UpdateClicks(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	link, err := h.service.RecordClick(r.Context(), code)
	if err != nil {
		h.writeAPIError(h.requestLogger(r), w, err, code)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.toResponse(link))
}

// DeleteLink handles DELETE /api/links/{code}.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	if err := h.service.Delete(r.Context(), code); err != nil {
		h.writeAPIError(h.requestLogger(r), w, err, code)
		return
	}

	h.requestLogger(r).Info("link deleted", zap.String("code", code))
	httpx.WriteNoContent(w)
}

// Redirect handles GET /{code}. The click is counted before the 302 is sent.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	if !ValidCode(code) {
		h.recorder.Redirect(metrics.OutcomeInvalid)
		h.renderNotFound(w, r)
		return
	}

	link, err := h.service.RecordClick(r.Context(), code)
	if err != nil {
		if errx.Is(err, errx.NotFound) {
			h.recorder.Redirect(metrics.OutcomeNotFound)
			h.renderNotFound(w, r)
			return
		}
		h.recorder.Redirect(metrics.OutcomeError)
		h.renderError(h.requestLogger(r), w, r, err, code)
		return
	}

	h.recorder.Redirect(metrics.OutcomeFound)
	http.Redirect(w, r, link.TargetURL, http.StatusFound)
}

// Dashboard handles GET /.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.List(r.Context())
	if err != nil {
		h.renderError(h.requestLogger(r), w, r, err, "")
		return
	}

	rows := make([]view.LinkRow, 0, len(links))
	for _, link := range links {
		rows = append(rows, h.toRow(link))
	}
	h.render(w, r, http.StatusOK, view.Dashboard, view.DashboardPage{Site: h.site, Links: rows})
}

// Stats handles GET /code/{code}.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	link, err := h.service.Get(r.Context(), code)
	if err != nil {
		if errx.Is(err, errx.NotFound) {
			h.renderNotFound(w, r)
			return
		}
		h.renderError(h.requestLogger(r), w, r, err, code)
		return
	}
	h.render(w, r, http.StatusOK, view.Stats, view.StatsPage{Site: h.site, Link: h.toRow(link)})
}

func (h *Handler) toRow(link Link) view.LinkRow {
	lastClicked := "Never"
	if link.LastClicked != nil {
		lastClicked = link.LastClicked.UTC().Format(displayTimeLayout)
	}
	return view.LinkRow{
		Code:        link.Code,
		TargetURL:   link.TargetURL,
		ShortURL:    h.shortURL(link.Code),
		TotalClicks: link.TotalClicks,
		LastClicked: lastClicked,
		CreatedAt:   link.CreatedAt.UTC().Format(displayTimeLayout),
	}
}

// writeAPIError maps a service error to a JSON error response.
func (h *Handler) writeAPIError(logger *zap.Logger, w http.ResponseWriter, err error, code string) {
	kind := errx.KindOf(err)

	fields := []zap.Field{
		zap.Error(err),
		zap.Stringer("error_kind", kind),
		zap.String("operation", errx.OpOf(err)),
	}
	if code != "" {
		fields = append(fields, zap.String("code", code))
	}

	status := httpx.ErrorKindToStatus(kind)
	message := msgInternal

	switch kind {
	case errx.Invalid:
		logger.Warn("invalid link request", fields...)
		message = invalidMessage(err)
	case errx.Conflict:
		logger.Warn("code conflict", fields...)
		message = msgConflict
	case errx.NotFound:
		logger.Info("link not found", fields...)
		message = msgNotFound
	default:
		logger.Error("unexpected error handling link request", fields...)
	}

	httpx.WriteError(w, status, httpx.ErrorKindToCode(kind), message, nil)
}

func (h *Handler) renderNotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, view.Error, view.ErrorPage{
		Site:    h.site,
		Status:  http.StatusNotFound,
		Title:   "404: Short code not found",
		Message: "The link you followed does not exist or has been deleted.",
	})
}

func (h *Handler) renderError(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error, code string) {
	logger.Error("unexpected error rendering page",
		zap.Error(err),
		zap.Stringer("error_kind", errx.KindOf(err)),
		zap.String("operation", errx.OpOf(err)),
		zap.String("code", code),
	)
	h.render(w, r, http.StatusInternalServerError, view.Error, view.ErrorPage{
		Site:    h.site,
		Status:  http.StatusInternalServerError,
		Title:   msgInternal,
		Message: "Something went wrong. Please try again later.",
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	if h.views == nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if err := h.views.Render(w, status, page, data); err != nil {
		h.requestLogger(r).Error("failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, msgInternal, http.StatusInternalServerError)
	}
}
