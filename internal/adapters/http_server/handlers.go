// internal/adapters/http_server/handlers.go
package httpserver

import (
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

	"uni_directory/internal/adapters/observability"
	"uni_directory/internal/app"
	"uni_directory/internal/compare"
	"uni_directory/internal/domain"
	"uni_directory/internal/geo"
	"uni_directory/internal/listing"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	Q   *app.QueryService
	C   *app.CommandService
	Cmp *app.CompareService
}

type problem struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(CacheControl("no-cache"))

			r.Get("/home", h.home)
			r.Get("/distances", h.distances)
			r.Get("/compare/search", h.compareSearch)

			r.Route("/universities", func(r chi.Router) {
				r.Get("/", h.listUniversities)
				r.Post("/", h.createUniversity)
				r.Get("/{id}", h.getUniversity)
				r.Put("/{id}", h.updateUniversity)
				r.Delete("/{id}", h.deleteUniversity)
				r.Get("/{id}/reviews", h.listReviews(domain.TargetUniversity))
			})
			r.Route("/faculties", func(r chi.Router) {
				r.Get("/", h.listFaculties)
				r.Post("/", h.createFaculty)
				r.Get("/{id}", h.getFaculty)
				r.Put("/{id}", h.updateFaculty)
				r.Delete("/{id}", h.deleteFaculty)
				r.Get("/{id}/reviews", h.listReviews(domain.TargetFaculty))
			})
			r.Route("/reviews", func(r chi.Router) {
				r.Post("/", h.submitReview)
				r.Get("/{id}", h.getReview)
				r.Put("/{id}", h.updateReview)
				r.Delete("/{id}", h.deleteReview)
			})
		})

		r.Route("/comparisons", func(r chi.Router) {
			r.Use(CacheControl("no-store"))

			r.Post("/", h.createComparison)
			r.Get("/{id}", h.getComparison)
			r.Put("/{id}/type", h.setComparisonType)
			r.Post("/{id}/items", h.addComparisonItem)
			r.Delete("/{id}/items", h.clearComparison)
			r.Delete("/{id}/items/{itemId}", h.removeComparisonItem)
		})
	})
}

/********** response helpers **********/

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemBody(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemBody(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeProblemBody(w, problem{
			Type: "about:blank", Title: "Validation Failed", Status: http.StatusUnprocessableEntity,
			Detail: "one or more fields are invalid", Errors: verr.Fields,
		})
	case errors.Is(err, compare.ErrLimitReached):
		observability.ObserveComparison("limit")
		writeProblem(w, http.StatusConflict, "Comparison Full", compare.LimitMessage)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrInvalidRecord):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
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

// writeCacheable writes v with a weak ETag, answering 304 when the client has it.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

/********** request helpers **********/

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeJSON(w, r, dst, true)
}

// decodeOptionalBody accepts an empty body, leaving dst untouched. The body is
// read either way, since chunked requests report no ContentLength.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeJSON(w, r, dst, false)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, required bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(dst)
	switch {
	case err == nil:
		return true
	case errors.Is(err, io.EOF) && !required:
		return true
	case errors.Is(err, io.EOF):
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body is required")
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
	}
	return false
}

// filtersFromQuery reads listing filters; malformed numbers are passed through
// and ignored by the engine.
func filtersFromQuery(r *http.Request) listing.Filters {
	q := r.URL.Query()
	f := listing.Filters{
		MinRating:       q.Get("minRating"),
		MaxFees:         q.Get("maxFees"),
		MinGrade:        q.Get("minGrade"),
		MaxGrade:        q.Get("maxGrade"),
		HasPostgraduate: listing.ParseFlag(q.Get("hasPostgraduate")),
		Accredited:      listing.ParseFlag(q.Get("accredited")),
		Verified:        listing.ParseFlag(q.Get("verified")),
		Location:        q.Get("location"),
		SortBy:          q.Get("sortBy"),
	}
	if p, ok := pointFromQuery(r); ok {
		f.Near = &p
	}
	return f
}

func pointFromQuery(r *http.Request) (geo.Point, bool) {
	lat, okLat := listing.ParseNumber(r.URL.Query().Get("lat"))
	lng, okLng := listing.ParseNumber(r.URL.Query().Get("lng"))
	if !okLat || !okLng || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return geo.Point{}, false
	}
	return geo.Point{Lat: lat, Lng: lng}, true
}

/********** listings & details **********/

func (h *Handlers) listUniversities(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.ListUniversities(r.Context(), r.URL.Query().Get("q"), filtersFromQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, map[string]any{"items": out, "count": len(out)})
}

func (h *Handlers) listFaculties(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.ListFaculties(r.Context(), r.URL.Query().Get("q"), filtersFromQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, map[string]any{"items": out, "count": len(out)})
}

func (h *Handlers) getUniversity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	d, err := h.Q.GetUniversity(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, d)
}

func (h *Handlers) getFaculty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	d, err := h.Q.GetFaculty(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, d)
}

func (h *Handlers) listReviews(targetType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
			return
		}
		out, err := h.Q.ListReviews(r.Context(), targetType, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeCacheable(w, r, map[string]any{"items": out, "count": len(out)})
	}
}

func (h *Handlers) home(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Home(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) distances(w http.ResponseWriter, r *http.Request) {
	p, ok := pointFromQuery(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid Location", "lat and lng must be valid coordinates")
		return
	}
	out, err := h.Q.Distances(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, map[string]any{"items": out, "count": len(out)})
}

/********** writes **********/

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	var in domain.NewReview
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.C.SubmitReview(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) getReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	out, err := h.Q.GetReview(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) updateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	var patch domain.Record
	if !decodeBody(w, r, &patch) {
		return
	}
	out, err := h.C.UpdateReview(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	if err := h.C.DeleteReview(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) createUniversity(w http.ResponseWriter, r *http.Request) {
	var in domain.University
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.C.CreateUniversity(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) createFaculty(w http.ResponseWriter, r *http.Request) {
	var in domain.Faculty
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.C.CreateFaculty(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) updateUniversity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	var patch domain.Record
	if !decodeBody(w, r, &patch) {
		return
	}
	out, err := h.C.UpdateUniversity(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) updateFaculty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	var patch domain.Record
	if !decodeBody(w, r, &patch) {
		return
	}
	out, err := h.C.UpdateFaculty(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) deleteUniversity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	if err := h.C.DeleteUniversity(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) deleteFaculty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	if err := h.C.DeleteFaculty(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/********** comparison **********/

func kindParam(s string) compare.Kind {
	if strings.TrimSpace(s) == "" {
		return compare.Universities
	}
	return compare.Kind(strings.ToLower(strings.TrimSpace(s)))
}

func (h *Handlers) compareSearch(w http.ResponseWriter, r *http.Request) {
	kind := kindParam(r.URL.Query().Get("type"))
	if !kind.Valid() {
		writeProblem(w, http.StatusBadRequest, "Invalid Type", "type must be universities or faculties")
		return
	}
	out, err := h.Q.SearchCandidates(r.Context(), kind, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, map[string]any{"items": out, "count": len(out)})
}

type typeBody struct {
	Type string `json:"type"`
}

type itemBody struct {
	ID int64 `json:"id"`
}

func (h *Handlers) createComparison(w http.ResponseWriter, r *http.Request) {
	var in typeBody
	if !decodeOptionalBody(w, r, &in) {
		return
	}
	out, err := h.Cmp.Create(r.Context(), kindParam(in.Type))
	if err != nil {
		writeError(w, r, err)
		return
	}
	observability.ObserveComparison("create")
	w.Header().Set("Location", "/v1/comparisons/"+out.ID)
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) getComparison(w http.ResponseWriter, r *http.Request) {
	out, err := h.Cmp.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) setComparisonType(w http.ResponseWriter, r *http.Request) {
	var in typeBody
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.Cmp.SetKind(r.Context(), chi.URLParam(r, "id"), kindParam(in.Type))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) addComparisonItem(w http.ResponseWriter, r *http.Request) {
	var in itemBody
	if !decodeBody(w, r, &in) {
		return
	}
	if in.ID <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	out, err := h.Cmp.AddItem(r.Context(), chi.URLParam(r, "id"), in.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	observability.ObserveComparison("add")
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) removeComparisonItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemId")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "itemId must be a positive number")
		return
	}
	out, err := h.Cmp.RemoveItem(r.Context(), chi.URLParam(r, "id"), itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	observability.ObserveComparison("remove")
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) clearComparison(w http.ResponseWriter, r *http.Request) {
	out, err := h.Cmp.Clear(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	observability.ObserveComparison("clear")
	writeJSON(w, http.StatusOK, out)
}
