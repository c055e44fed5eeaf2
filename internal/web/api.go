package web

import (
	"fmt"
	"net/http"

	"github.com/raine/rapidlisting/internal/listing"
	"github.com/raine/rapidlisting/internal/session"
)

type modeRequest struct {
	Mode string `json:"mode"`
}

type fieldRequest struct {
	Value string `json:"value"`
}

type optionsResponse struct {
	Years             []string `json:"years"`
	Makes             []string `json:"makes"`
	AutoCategories    []string `json:"autoCategories"`
	GeneralCategories []string `json:"generalCategories"`
	Conditions        []string `json:"conditions"`
}

type imagesResponse struct {
	Images []imageInfo `json:"images"`
}

type imageInfo struct {
	ID       string `json:"id"`
	MIMEType string `json:"mimeType"`
	Size     int    `json:"size"`
	URL      string `json:"url"`
}

type stateResponse struct {
	session.View
	Images []imageInfo `json:"images"`
}

func newImageInfo(img session.Image) imageInfo {
	return imageInfo{
		ID:       img.ID,
		MIMEType: img.MIMEType,
		Size:     len(img.Data),
		URL:      "/images/" + img.ID,
	}
}

// state renders the session without image bytes.
func (s *Server) state(sess *session.Session) stateResponse {
	view := sess.View(s.now())
	images := make([]imageInfo, 0, len(view.Images))
	for _, img := range view.Images {
		images = append(images, newImageInfo(img))
	}
	return stateResponse{View: view, Images: images}
}

// APIState handles GET /api/state.
func (s *Server) APIState(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.state(sessionFrom(r.Context())))
}

// APIMode handles POST /api/mode.
func (s *Server) APIMode(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	var req modeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, fmt.Errorf("%w: invalid JSON", errBadRequest))
		return
	}
	mode, err := listing.ParseMode(req.Mode)
	if err == nil {
		err = sess.SetMode(mode)
	}
	if err != nil {
		writeAPIError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, s.state(sess))
}

// APISetField handles PUT /api/fields/{field}.
func (s *Server) APISetField(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	var req fieldRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, fmt.Errorf("%w: invalid JSON", errBadRequest))
		return
	}
	if err := sess.SetField(listing.Field(r.PathValue("field")), req.Value); err != nil {
		writeAPIError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, s.state(sess))
}

// APIAddImages handles POST /api/images.
func (s *Server) APIAddImages(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	added, err := s.addUploads(w, r, sess)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	resp := imagesResponse{Images: make([]imageInfo, 0, len(added))}
	for _, img := range added {
		resp.Images = append(resp.Images, newImageInfo(img))
	}
	jsonResponse(w, http.StatusCreated, resp)
}

// APIDeleteImage handles DELETE /api/images/{id}.
func (s *Server) APIDeleteImage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := sess.RemoveImage(r.PathValue("id")); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// APIExtract handles POST /api/extract.
func (s *Server) APIExtract(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	text, err := s.service.Extract(callContext(r), sess)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"extractedText": text})
}

// APIGenerate handles POST /api/generate.
func (s *Server) APIGenerate(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	result, err := s.service.Generate(callContext(r), sess)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// APICopied handles POST /api/copied/{field}.
func (s *Server) APICopied(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	field, err := listing.ParseResultField(r.PathValue("field"))
	if err == nil {
		err = sess.MarkCopied(field, s.now())
	}
	if err != nil {
		writeAPIError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"field":    field,
		"windowMs": session.CopiedWindow.Milliseconds(),
	})
}

// APIReset handles POST /api/reset.
func (s *Server) APIReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.Reset()
	jsonResponse(w, http.StatusOK, s.state(sess))
}

// APIOptions handles GET /api/options.
func (s *Server) APIOptions(w http.ResponseWriter, r *http.Request) {
	conditions := listing.Conditions()
	resp := optionsResponse{
		Years:             s.options.Years(),
		Makes:             s.options.Makes,
		AutoCategories:    s.options.Categories(listing.ModeAutoParts),
		GeneralCategories: s.options.Categories(listing.ModeGeneralItems),
		Conditions:        make([]string, 0, len(conditions)),
	}
	for _, c := range conditions {
		resp.Conditions = append(resp.Conditions, c.String())
	}
	jsonResponse(w, http.StatusOK, resp)
}

// APIModels handles GET /api/options/models?make=.
func (s *Server) APIModels(w http.ResponseWriter, r *http.Request) {
	models := s.options.ModelsFor(r.URL.Query().Get("make"))
	if models == nil {
		models = []string{}
	}
	jsonResponse(w, http.StatusOK, map[string][]string{"models": models})
}
