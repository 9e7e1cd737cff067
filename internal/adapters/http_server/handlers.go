// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"party_radar/internal/adapters/observability"
	"party_radar/internal/app"
	"party_radar/internal/bill"
	"party_radar/internal/domain"
)

const maxImageBytes = 10 << 20

type Handlers struct {
	Resolver *app.Resolver
	Receipts *app.ReceiptService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Post("/restaurants/nearest", h.nearest)
		r.Post("/restaurants/nearest-chain", h.nearestChain)
		r.Post("/parties/{partyID}/nearest-restaurant", h.partyNearest)
		r.Post("/parties/{partyID}/receipts", h.importReceipt)
		r.Post("/parties/{partyID}/receipts/scan", h.scanReceipt)

		r.Route("/receipts/{id}", func(r chi.Router) {
			r.Get("/", h.getReceipt)
			r.Patch("/items/{index}", h.editItem)
			r.Put("/tax-rate", h.setTaxRate)
			r.Put("/gratuity-rate", h.setGratuityRate)

			r.Post("/split", h.startSplit)
			r.Get("/split", h.getSplit)
			r.Put("/split/payer", h.selectPayer)
			r.Put("/split/cursor", h.moveCursor)
			r.Post("/split/items/{index}/toggle", h.toggle)
			r.Post("/split/finalize", h.finalize)
		})
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors to problem responses. Each resolver error
// gets its own message so users know what to fix.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		title  string
		detail = err.Error()
	)
	switch {
	case errors.Is(err, domain.ErrNoAddresses):
		status, title, detail = http.StatusUnprocessableEntity, "No Addresses", "members need to complete profile"
	case errors.Is(err, domain.ErrNoGeocodableAddresses):
		status, title, detail = http.StatusUnprocessableEntity, "Addresses Not Found", "none of the member addresses could be located; check them for typos"
	case errors.Is(err, domain.ErrNoCandidates):
		status, title, detail = http.StatusNotFound, "No Restaurants", "No restaurants found near the party location."
	case errors.Is(err, domain.ErrPlaceNotFound):
		status, title = http.StatusNotFound, "Restaurant Not Found"
	case errors.Is(err, domain.ErrExternalServiceUnavailable):
		status, title = http.StatusServiceUnavailable, "Service Unavailable"
	case errors.Is(err, domain.ErrInvalidAssignmentState):
		status, title = http.StatusConflict, "Invalid Assignment State"
	case errors.Is(err, domain.ErrNotFound):
		status, title = http.StatusNotFound, "Not Found"
	case errors.Is(err, bill.ErrItemOutOfRange), errors.Is(err, bill.ErrUnknownField):
		status, title = http.StatusBadRequest, "Invalid Item"
	case errors.Is(err, app.ErrEmptyReceipt):
		status, title = http.StatusUnprocessableEntity, "Empty Receipt"
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		status, title, detail = http.StatusInternalServerError, "Internal Error", "unexpected error: "+err.Error()
	}
	writeProblem(w, status, title, detail)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// decode reads a JSON body into dst, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	return true
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid Index", "index must be a non-negative integer")
		return 0, false
	}
	return i, true
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// ---- restaurants ----

type nearestRequest struct {
	Members        []domain.MemberAddress `json:"members"`
	RestaurantName string                 `json:"restaurantName"`
}

type chainRequest struct {
	Members            []domain.MemberAddress `json:"members"`
	ChainQuery         string                 `json:"chainQuery"`
	OriginalRestaurant *domain.PlaceCandidate `json:"originalRestaurant"`
}

type partyResolveRequest struct {
	RestaurantName string `json:"restaurantName"`
	Chain          bool   `json:"chain"`
}

func (h *Handlers) nearest(w http.ResponseWriter, r *http.Request) {
	var req nearestRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.Resolver.FindNearestRestaurant(r.Context(), req.Members, strings.TrimSpace(req.RestaurantName))
	observability.ObserveResolution(app.ResolutionNearest, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) nearestChain(w http.ResponseWriter, r *http.Request) {
	var req chainRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.Resolver.FindNearestChainLocation(r.Context(), req.Members, strings.TrimSpace(req.ChainQuery), req.OriginalRestaurant)
	observability.ObserveResolution(app.ResolutionChain, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) partyNearest(w http.ResponseWriter, r *http.Request) {
	var req partyResolveRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	kind := app.ResolutionNearest
	if req.Chain {
		kind = app.ResolutionChain
	}
	out, err := h.Resolver.ResolveForParty(r.Context(), chi.URLParam(r, "partyID"), strings.TrimSpace(req.RestaurantName), req.Chain)
	observability.ObserveResolution(kind, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- receipts ----

func (h *Handlers) importReceipt(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if !decode(w, r, &payload) {
		return
	}
	rc, err := h.Receipts.Import(r.Context(), chi.URLParam(r, "partyID"), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rc)
}

func (h *Handlers) scanReceipt(w http.ResponseWriter, r *http.Request) {
	mime := r.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		writeProblem(w, http.StatusUnsupportedMediaType, "Unsupported Media Type", "send the receipt photo as image/*")
		return
	}
	img, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		writeProblem(w, http.StatusRequestEntityTooLarge, "Image Too Large", err.Error())
		return
	}
	rc, err := h.Receipts.Scan(r.Context(), chi.URLParam(r, "partyID"), img, mime)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rc)
}

func (h *Handlers) getReceipt(w http.ResponseWriter, r *http.Request) {
	rc, err := h.Receipts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	etag, body := calcETagAndBody(rc)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getReceipt body")
	}
}

type editRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// rawValue accepts "12.50" as well as 12.50.
func rawValue(m json.RawMessage) string {
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(m))
}

func (h *Handlers) editItem(w http.ResponseWriter, r *http.Request) {
	idx, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req editRequest
	if !decode(w, r, &req) {
		return
	}
	rc, err := h.Receipts.EditItem(r.Context(), chi.URLParam(r, "id"), idx, bill.Field(req.Field), rawValue(req.Value))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

type rateRequest struct {
	Rate *float64 `json:"rate"`
}

func (h *Handlers) setTaxRate(w http.ResponseWriter, r *http.Request) {
	h.setRate(w, r, h.Receipts.SetTaxRate)
}

func (h *Handlers) setGratuityRate(w http.ResponseWriter, r *http.Request) {
	h.setRate(w, r, h.Receipts.SetGratuityRate)
}

func (h *Handlers) setRate(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id string, rate float64) (domain.Receipt, error)) {
	var req rateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Rate == nil || *req.Rate < 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid Rate", "rate must be a non-negative fraction, e.g. 0.0875")
		return
	}
	rc, err := apply(r.Context(), chi.URLParam(r, "id"), *req.Rate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

// ---- split session ----

type startSplitRequest struct {
	Members []string `json:"members"`
}

type memberRequest struct {
	MemberID string `json:"memberId"`
}

type cursorRequest struct {
	Index *int `json:"index"`
}

func (h *Handlers) startSplit(w http.ResponseWriter, r *http.Request) {
	var req startSplitRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := h.Receipts.StartSplit(r.Context(), chi.URLParam(r, "id"), req.Members)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *Handlers) getSplit(w http.ResponseWriter, r *http.Request) {
	s, err := h.Receipts.Split(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) selectPayer(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := h.Receipts.SelectPayer(r.Context(), chi.URLParam(r, "id"), req.MemberID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) moveCursor(w http.ResponseWriter, r *http.Request) {
	var req cursorRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Index", "index is required")
		return
	}
	s, err := h.Receipts.GoTo(r.Context(), chi.URLParam(r, "id"), *req.Index)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) toggle(w http.ResponseWriter, r *http.Request) {
	idx, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req memberRequest
	if !decode(w, r, &req) {
		return
	}
	ia, err := h.Receipts.Toggle(r.Context(), chi.URLParam(r, "id"), idx, req.MemberID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ia)
}

func (h *Handlers) finalize(w http.ResponseWriter, r *http.Request) {
	res, err := h.Receipts.Finalize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	observability.SplitsFinalized.Inc()
	writeJSON(w, http.StatusOK, res)
}
