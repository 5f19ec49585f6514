package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
	"github.com/dmitrijs2005/recipebox/internal/server/recipes"
	"github.com/gorilla/mux"
)

const maxJSONBytes = 1 << 20

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *HTTPServer) issueUploadTarget(w http.ResponseWriter, r *http.Request) {
	h, err := s.images.IssueUploadTarget(r.Context())
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *HTTPServer) resolveDisplayURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.images.ResolveDisplayURL(r.Context(), r.URL.Query().Get("ref"))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *HTTPServer) thumbnail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	height, err := strconv.Atoi(q.Get("h"))
	if err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("height %q: %w", q.Get("h"), common.ErrorValidation))
		return
	}

	data, contentType, err := s.images.Thumbnail(r.Context(), q.Get("ref"), height)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *HTTPServer) listRecipes(w http.ResponseWriter, r *http.Request) {
	list, err := s.recipes.List(r.Context())
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *HTTPServer) createRecipe(w http.ResponseWriter, r *http.Request) {
	var in models.NewRecipe
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	created, err := s.recipes.Create(r.Context(), in)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) submitForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("multipart form: %v: %w", err, common.ErrorValidation))
		return
	}

	in, err := recipes.ParseForm(
		r.FormValue("title"),
		r.FormValue("ingredients"),
		r.FormValue("instructions"),
		r.FormValue("rating"),
	)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	file, err := readImageFile(r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	created, err := s.recipes.Submit(r.Context(), in, file)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) getRecipe(w http.ResponseWriter, r *http.Request) {
	rec, err := s.recipes.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	if rec == nil {
		s.writeError(r.Context(), w, common.ErrorNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *HTTPServer) updateRecipe(w http.ResponseWriter, r *http.Request) {
	var patch models.RecipePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	updated, err := s.recipes.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := s.recipes.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("request body: %v: %w", err, common.ErrorValidation)
	}
	return nil
}

// readImageFile returns the optional "image" part of a multipart form.
func readImageFile(r *http.Request) (*models.ImageFile, error) {
	f, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("image: %v: %w", err, common.ErrorValidation)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	contentType := hdr.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return &models.ImageFile{Name: hdr.Filename, ContentType: contentType, Data: data}, nil
}
