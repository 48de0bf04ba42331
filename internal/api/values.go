package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/edujtm/rabbit-values-producer/internal/messageq"
	"github.com/edujtm/rabbit-values-producer/internal/metrics"
	"github.com/rs/zerolog/log"
)

var (
	errNotJSONString = errors.New("request body must be a JSON string")
	errInvalidUTF8   = errors.New("request body must be valid UTF-8 text")
)

// Readiness reports whether the broker connection is usable.
type Readiness interface {
	IsReady() bool
}

type Handler struct {
	publisher messageq.Publisher
	readiness Readiness
	metrics   *metrics.Metrics
}

// NewHandler builds the HTTP handlers. m may be nil.
func NewHandler(publisher messageq.Publisher, readiness Readiness, m *metrics.Metrics) *Handler {
	return &Handler{
		publisher: publisher,
		readiness: readiness,
		metrics:   m,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /values", h.postValueHandler)
	mux.HandleFunc("GET /healthz", h.healthHandler)
}

func (h *Handler) postValueHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	value, err := readValue(r)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected value")
		h.metrics.ObservePublish(metrics.ResultBadRequest, 0, 0)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.publisher.Publish(r.Context(), value)
	result := resultOf(err)
	h.metrics.ObservePublish(result, len(value), time.Since(start))

	if err != nil {
		log.Error().
			Err(err).
			Str("result", result).
			Msg("Couldn't publish value")
		http.Error(w, "couldn't publish value", statusOf(err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !h.readiness.IsReady() {
		http.Error(w, "broker connection unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// readValue accepts either a JSON string literal (for JSON content types)
// or raw UTF-8 text (anything else). Both must be valid UTF-8: the JSON
// decoder would otherwise replace bad bytes with U+FFFD.
func readValue(r *http.Request) (string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("reading request body: %w", err)
	}

	if !utf8.Valid(body) {
		return "", errInvalidUTF8
	}

	if isJSON(r.Header.Get("Content-Type")) {
		if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
			return "", errNotJSONString
		}
		var value string
		if err := json.Unmarshal(body, &value); err != nil {
			return "", fmt.Errorf("%w: %w", errNotJSONString, err)
		}
		return value, nil
	}

	return string(body), nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func statusOf(err error) int {
	if errors.Is(err, messageq.ErrConnectionUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, messageq.ErrConnectionUnavailable):
		return metrics.ResultConnectionUnavailable
	case errors.Is(err, messageq.ErrDeclarationConflict):
		return metrics.ResultDeclarationConflict
	default:
		return metrics.ResultTransportError
	}
}
