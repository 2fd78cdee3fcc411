package testing

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/julianstephens/church-latin/internal/shared"
)

var resourceFilterRe = regexp.MustCompile(`^\(resourceId='((?:[^'\\]|\\.)*)'\)$`)

// PocketBaseServer is an httptest server speaking the subset of the PocketBase records API
// used by the seeders, backed by a [MockBackend].
type PocketBaseServer struct {
	*httptest.Server
	Backend  *MockBackend
	Email    string
	Password string
	Token    string
	Requests []string
}

// NewPocketBaseServer starts a fake PocketBase instance. Requests to record endpoints must carry
// the token returned by auth-with-password for the given credentials.
func NewPocketBaseServer(t *testing.T, email, password string) *PocketBaseServer {
	t.Helper()

	srv := &PocketBaseServer{
		Backend:  NewMockBackend(),
		Email:    email,
		Password: password,
		Token:    "test-token",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"code": 200, "message": "API is healthy."})
	})
	mux.HandleFunc("POST /api/collections/{collection}/auth-with-password", srv.auth)
	mux.HandleFunc("GET /api/collections/{collection}/records", srv.authorized(srv.list))
	mux.HandleFunc("POST /api/collections/{collection}/records", srv.authorized(srv.create))
	mux.HandleFunc("PATCH /api/collections/{collection}/records/{id}", srv.authorized(srv.update))
	mux.HandleFunc("DELETE /api/collections/{collection}/records/{id}", srv.authorized(srv.remove))

	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.Requests = append(srv.Requests, r.Method+" "+r.URL.Path)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func (s *PocketBaseServer) auth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Identity string `json:"identity"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if body.Identity != s.Email || body.Password != s.Password {
		writeError(w, http.StatusBadRequest, "Failed to authenticate.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": s.Token, "record": map[string]any{"email": s.Email}})
}

func (s *PocketBaseServer) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Email != "" && r.Header.Get("Authorization") != s.Token {
			writeError(w, http.StatusForbidden, "Only superusers can perform this action.")
			return
		}
		next(w, r)
	}
}

func (s *PocketBaseServer) list(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	query := r.URL.Query()

	if filter := query.Get("filter"); filter != "" {
		match := resourceFilterRe.FindStringSubmatch(filter)
		if match == nil {
			writeError(w, http.StatusBadRequest, "unsupported filter")
			return
		}
		key := strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(match[1])
		rec, err := s.Backend.FindByResourceID(r.Context(), collection, key)
		items := []any{}
		if err == nil {
			items = append(items, rec)
		} else if !errors.Is(err, shared.ErrRecordNotFound) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"page": 1, "perPage": 1, "totalItems": -1, "totalPages": -1, "items": items})
		return
	}

	page, _ := strconv.Atoi(query.Get("page"))
	perPage, _ := strconv.Atoi(query.Get("perPage"))
	result, err := s.Backend.List(r.Context(), collection, page, perPage)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *PocketBaseServer) create(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	rec, err := s.Backend.Create(r.Context(), r.PathValue("collection"), data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *PocketBaseServer) update(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	rec, err := s.Backend.Update(r.Context(), r.PathValue("collection"), r.PathValue("id"), data)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *PocketBaseServer) remove(w http.ResponseWriter, r *http.Request) {
	if err := s.Backend.Delete(r.Context(), r.PathValue("collection"), r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"status": status, "message": msg, "data": map[string]any{}})
}
