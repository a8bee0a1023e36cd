package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"wabroker/internal/dispatch"
	logx "wabroker/pkg/logx"
)

// Dispatcher is the engine surface the handlers drive.
type Dispatcher interface {
	IsReady() bool
	SendText(ctx context.Context, contact, body string) error
	DeliverPoll(ctx context.Context, contact, question string, options []string) (dispatch.Outcome, error)
	ListGroups(ctx context.Context) ([]dispatch.Group, error)
	Open(ctx context.Context) error
}

const maxBodyBytes = 1 << 20

type sendMessageRequest struct {
	Contact string `json:"contact"`
	Message string `json:"message"`
}

type sendPollRequest struct {
	Contact  string   `json:"contact"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type okResponse struct {
	Status string           `json:"status"`
	Method dispatch.Outcome `json:"method,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
}

type groupsResponse struct {
	Status string           `json:"status"`
	Groups []dispatch.Group `json:"groups"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type handlers struct {
	d   Dispatcher
	log logx.Logger
}

func (h *handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Ready: h.d.IsReady()})
}

func (h *handlers) getGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.d.ListGroups(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupsResponse{Status: "ok", Groups: groups})
}

func (h *handlers) openWhatsApp(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Open(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Status: "ok"})
}

func (h *handlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.d.SendText(r.Context(), req.Contact, req.Message); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Status: "ok"})
}

func (h *handlers) sendPoll(w http.ResponseWriter, r *http.Request) {
	var req sendPollRequest
	if !h.decode(w, r, &req) {
		return
	}
	outcome, err := h.d.DeliverPoll(r.Context(), req.Contact, req.Question, req.Options)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Status: "ok", Method: outcome})
}

// decode reads a JSON body. A missing or malformed body is a 400.
func (h *handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "missing JSON body"
		}
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := dispatch.StatusCode(err)
	if code >= 500 && !errors.Is(err, dispatch.ErrNotReady) {
		h.log.Warn("request failed",
			logx.String("request_id", RequestIDFrom(r.Context())),
			logx.String("path", r.URL.Path),
			logx.Err(err),
		)
	}
	writeError(w, code, err.Error())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Status: "error", Message: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
