package api

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"pastebin/cfg"
	"pastebin/pkg/domain"
	"pastebin/svc/lim"
	"pastebin/svc/svc"
	"pastebin/svc/util"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/hlog"
)

const (
	formOverhead     = 16 * 1024
	// percent-encoding turns each content byte into at most three
	encodingFactor   = 3
	multipartMemory  = 1 << 20
	createdNotice    = "Paste created successfully!"
	noticeError      = "error"
	noticeSuccess    = "success"
	passwordHeader   = "X-Paste-Password"
	passwordQueryKey = "password"
)

type Hdl struct {
	paste *svc.Paste
	cfg   *cfg.Cfg
}

type CreateReq struct {
	Content  string `json:"content"`
	Title    string `json:"title,omitempty"`
	Password string `json:"password,omitempty"`
	Language string `json:"language,omitempty"`
}
type CreateResp struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
type Notice struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}
type IndexResp struct {
	Recent []domain.Summary `json:"recent"`
	Notice *Notice          `json:"notice,omitempty"`
}
type PasteView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Notice    *Notice   `json:"notice,omitempty"`
}
type PasswordPrompt struct {
	PasswordRequired bool   `json:"password_required"`
	PasteID          string `json:"paste_id"`
	Message          string `json:"message"`
}

func (h *Hdl) Index(w http.ResponseWriter, r *http.Request) {
	requestID := util.GetRequestID(r.Context())
	recent, err := h.paste.ListRecent(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to list recent pastes")
		writeErr(w, err, requestID)
		return
	}
	if recent == nil {
		recent = []domain.Summary{}
	}
	json.NewEncoder(w).Encode(IndexResp{Recent: recent, Notice: noticeFrom(r)})
}
func (h *Hdl) CreatePaste(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	requestID := util.GetRequestID(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxPasteSize*encodingFactor+formOverhead)
	req, err := decodeCreate(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			log.Warn().Int64("limit", maxErr.Limit).Msg("request body too large")
			writeErr(w, domain.ErrPasteTooLarge, requestID)
			return
		}
		log.Warn().Err(err).Msg("invalid create request")
		writeErr(w, domain.ErrInvalidRequest, requestID)
		return
	}
	paste, err := h.paste.Create(r.Context(), domain.CreateParams{
		Content:  req.Content,
		Title:    req.Title,
		Password: req.Password,
		Language: req.Language,
	})
	if err != nil {
		if errors.Is(err, domain.ErrContentRequired) {
			log.Info().Msg("rejected paste with empty content")
			redirectWithNotice(w, "/", noticeError, domain.ErrContentRequired.Msg)
			return
		}
		if domain.Status(err) >= http.StatusInternalServerError {
			log.Error().Err(err).Msg("failed to create paste")
		} else {
			log.Warn().Err(err).Msg("create rejected")
		}
		writeErr(w, err, requestID)
		return
	}
	log.Info().
		Str("paste_id", paste.ID).
		Int("size", len(req.Content)).
		Bool("password_protected", paste.Protected()).
		Str("language", paste.Language).
		Msg("paste created")
	location := "/paste/" + url.PathEscape(paste.ID)
	redirectWithNotice(w, location, noticeSuccess, createdNotice)
	json.NewEncoder(w).Encode(CreateResp{ID: paste.ID, URL: location})
}
func (h *Hdl) GetPaste(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	requestID := util.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")
	password := r.URL.Query().Get(passwordQueryKey)
	if password == "" {
		password = r.Header.Get(passwordHeader)
	}
	paste, err := h.paste.Get(r.Context(), id, password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPasteNotFound):
			log.Info().Str("paste_id", id).Msg("paste not found")
			redirectWithNotice(w, "/", noticeError, domain.ErrPasteNotFound.Msg)
		case errors.Is(err, domain.ErrPasswordRequired):
			log.Info().
				Str("paste_id", id).
				Bool("password_supplied", password != "").
				Str("client_ip", util.RedactIP(lim.GetRealIP(r, h.cfg.TrustedProxies))).
				Msg("password prompt")
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(PasswordPrompt{
				PasswordRequired: true,
				PasteID:          id,
				Message:          "Password Protected Paste",
			})
		default:
			log.Error().Err(err).Str("paste_id", id).Msg("get failed")
			writeErr(w, err, requestID)
		}
		return
	}
	log.Info().Str("paste_id", id).Msg("paste retrieved")
	if paste.Protected() {
		w.Header().Set("Cache-Control", "no-store")
	}
	json.NewEncoder(w).Encode(PasteView{
		ID:        paste.ID,
		Title:     paste.Title,
		Content:   paste.Content,
		Language:  paste.Language,
		CreatedAt: paste.CreatedAt,
		Notice:    noticeFrom(r),
	})
}
func (h *Hdl) GetLanguages(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.paste.Languages())
}

// decodeCreate accepts the HTML form encodings as well as a JSON body.
func decodeCreate(r *http.Request) (CreateReq, error) {
	var req CreateReq
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return req, errors.Wrap(err, "content type")
	}
	switch mediaType {
	case "application/json":
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil && err != io.EOF {
			return req, errors.Wrap(err, "decode json")
		}
		return req, nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return req, errors.Wrap(err, "parse form")
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return req, errors.Wrap(err, "parse multipart form")
		}
	default:
		return req, errors.Errorf("unsupported content type %q", mediaType)
	}
	req.Content = r.PostForm.Get("content")
	req.Title = r.PostForm.Get("title")
	req.Password = r.PostForm.Get("password")
	req.Language = r.PostForm.Get("language")
	return req, nil
}

// redirectWithNotice replaces flash messages: the notice rides along in the
// query string of the redirect target.
func redirectWithNotice(w http.ResponseWriter, target, category, message string) {
	q := url.Values{}
	q.Set(category, message)
	w.Header().Set("Location", target+"?"+q.Encode())
	w.WriteHeader(http.StatusSeeOther)
}
func noticeFrom(r *http.Request) *Notice {
	q := r.URL.Query()
	if msg := q.Get(noticeError); msg != "" {
		return &Notice{Category: noticeError, Message: msg}
	}
	if msg := q.Get(noticeSuccess); msg != "" {
		return &Notice{Category: noticeSuccess, Message: msg}
	}
	return nil
}
func writeErr(w http.ResponseWriter, err error, requestID string) {
	statusCode := domain.Status(err)
	if statusCode >= http.StatusInternalServerError {
		util.Error().
			Str("error", util.RedactSecret(err.Error())).
			Str("request_id", requestID).
			Msg("internal error with detailed info")
	}
	resp := domain.ToResp(err)
	resp.RequestID = requestID
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}
