package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/access"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// currentUser returns the authenticated user, writing a 401 when the auth
// middleware did not run.
func currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	u, ok := shared.UserFromContext(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	return u, true
}

func currentPrincipal(w http.ResponseWriter, r *http.Request) (access.Principal, bool) {
	u, ok := currentUser(w, r)
	if !ok {
		return access.Principal{}, false
	}
	return access.PrincipalFor(u), true
}

// getPathUUID parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", nil)
	}
	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// principalAndPathUUID combines currentPrincipal and getPathUUID, writing the
// error response when either fails.
func principalAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
) (access.Principal, uuid.UUID, bool) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return access.Principal{}, uuid.Nil, false
	}
	id, err := getPathUUID(r, paramName)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return access.Principal{}, uuid.Nil, false
	}
	return p, id, true
}

// decodeAndValidate reads the JSON body into v and validates it, writing the
// 400 response on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := shared.DecodeJSON(w, r, v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if errs := shared.ValidateRequest(v); errs != nil {
		shared.RespondWithValidationErrors(w, r, errs)
		return false
	}
	return true
}

// queryInt returns the integer query parameter name, or def when it is
// missing or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// pageFromQuery reads page, limit and sort. Out-of-range limits fall back to
// the default; a page past store.MaxOffset or an unknown sort field is a
// validation error.
func pageFromQuery(
	r *http.Request,
	defaultSort string,
	parse func(string) (store.SortField, bool, bool),
) (store.Page, []shared.FieldError) {
	page := queryInt(r, "page", store.DefaultPage)
	if page < 1 {
		page = store.DefaultPage
	}
	limit := queryInt(r, "limit", store.DefaultLimit)
	if limit < 1 || limit > store.MaxLimit {
		limit = store.DefaultLimit
	}

	if !(store.Page{Number: page, Limit: limit}).InRange() {
		return store.Page{}, []shared.FieldError{{
			Field:   "page",
			Message: "page is out of range",
			Value:   r.URL.Query().Get("page"),
		}}
	}

	rawSort := strings.TrimSpace(r.URL.Query().Get("sort"))
	if rawSort == "" {
		rawSort = defaultSort
	}
	field, desc, ok := parse(rawSort)
	if !ok {
		return store.Page{}, []shared.FieldError{{
			Field:   "sort",
			Message: "sort field is not supported",
			Value:   rawSort,
		}}
	}
	return store.Page{Number: page, Limit: limit, Sort: field, Desc: desc}, nil
}

// Pagination describes the window returned by a list endpoint.
type Pagination struct {
	Current    int  `json:"current"`
	Total      int  `json:"total"`
	Count      int  `json:"count"`
	TotalTasks *int `json:"totalTasks,omitempty"`
	TotalUsers *int `json:"totalUsers,omitempty"`
}

func newPagination(page store.Page, count, total int) Pagination {
	return Pagination{
		Current: page.Number,
		Total:   page.TotalPages(total),
		Count:   count,
	}
}
