package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/raine/rapidlisting/internal/listing"
	"github.com/raine/rapidlisting/internal/session"
	"github.com/rs/zerolog/log"
)

// IndexPage renders the listing form, images and result.
func (s *Server) IndexPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	view := sess.View(s.now())

	var missing []string
	for _, f := range view.Missing {
		missing = append(missing, fieldLabel(view.Item(), f))
	}

	data := pageData{
		Title:       "Rapid Listing",
		Flash:       sess.TakeFlash(),
		View:        view,
		Modes:       modeTabs(view.Mode),
		Fields:      formFields(view.Item(), s.options),
		Results:     resultFields(view),
		MaxImages:   session.MaxImages,
		CopyWindow:  session.CopiedWindow.Milliseconds(),
		Missing:     missing,
		CanGenerate: view.CanGenerate(),
	}
	s.templates.Render(w, "index.html", data)
}

// ModeSubmit switches between auto parts and general items.
func (s *Server) ModeSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	mode, err := listing.ParseMode(r.FormValue("mode"))
	if err == nil {
		err = sess.SetMode(mode)
	}
	s.redirectHome(w, r, sess, err)
}

// FormSubmit saves every posted field of the active record.
func (s *Server) FormSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	err := applyPostedFields(r, sess)
	s.redirectHome(w, r, sess, err)
}

// applyPostedFields saves the posted fields of the active record. Fields
// missing from the post keep their value.
func applyPostedFields(r *http.Request, sess *session.Session) error {
	if err := r.ParseForm(); err != nil {
		return errBadRequest
	}

	values := make(map[listing.Field]string)
	for _, spec := range sess.Item().Fields() {
		if _, ok := r.PostForm[string(spec.Key)]; ok {
			values[spec.Key] = r.PostForm.Get(string(spec.Key))
		}
	}
	if len(values) == 0 {
		return nil
	}
	return sess.SetFields(values)
}

// ImagesSubmit adds uploaded photos.
func (s *Server) ImagesSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	_, err := s.addUploads(w, r, sess)
	s.redirectHome(w, r, sess, err)
}

// ImageDeleteSubmit removes one photo.
func (s *Server) ImageDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	err := sess.RemoveImage(r.PathValue("id"))
	s.redirectHome(w, r, sess, err)
}

// ImageGet serves the bytes of one photo of the session.
func (s *Server) ImageGet(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	img, err := sess.Image(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := w.Write(img.Data); err != nil {
		log.Debug().Err(err).Msg("failed to write image")
	}
}

// ExtractSubmit scans the most recent photo for text.
func (s *Server) ExtractSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	_, err := s.service.Extract(callContext(r), sess)
	s.redirectHome(w, r, sess, err)
}

// GenerateSubmit saves the fields posted with the form, then generates the
// six listing texts from them.
func (s *Server) GenerateSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	err := applyPostedFields(r, sess)
	if err == nil {
		_, err = s.service.Generate(callContext(r), sess)
	}
	s.redirectHome(w, r, sess, err)
}

// ResetSubmit clears both records, the photos and the result.
func (s *Server) ResetSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.Reset()
	s.redirectHome(w, r, sess, nil)
}

// callContext detaches a provider call from the request so a client that
// goes away does not cancel it. The Gemini client bounds the call with its
// own timeout.
func callContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("form action failed")
		}
		sess.SetFlash(errorMessage(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func fieldLabel(item listing.Item, field listing.Field) string {
	for _, spec := range item.Fields() {
		if spec.Key == field {
			return spec.Label
		}
	}
	return string(field)
}
