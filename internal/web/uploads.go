package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/raine/rapidlisting/internal/imaging"
	"github.com/raine/rapidlisting/internal/session"
	"github.com/rs/zerolog/log"
)

const uploadField = "images"

var (
	errBadRequest    = errors.New("bad request")
	errFileTooLarge  = errors.New("image is too large")
	errNoFilesPosted = fmt.Errorf("%w: no images in upload", errBadRequest)
)

// addUploads reads the multipart images of r, normalizes them and appends
// them to the session in upload order. Images added before a failure stay.
func (s *Server) addUploads(w http.ResponseWriter, r *http.Request, sess *session.Session) ([]session.Image, error) {
	limit := s.opts.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit*session.MaxImages+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[uploadField]
	if len(files) == 0 {
		return nil, errNoFilesPosted
	}

	var added []session.Image
	for _, fh := range files {
		data, err := readUpload(fh, limit)
		if err != nil {
			return added, err
		}
		img, err := imaging.Normalize(data)
		if err != nil {
			return added, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		stored, err := sess.AddImage(img.Data, img.MIMEType, s.now())
		if err != nil {
			return added, err
		}
		log.Info().
			Str("session", sess.ID()).
			Str("image", stored.ID).
			Int("bytes", len(img.Data)).
			Int("width", img.Width).
			Int("height", img.Height).
			Msg("image added")
		added = append(added, stored)
	}
	return added, nil
}

func readUpload(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	if fh.Size > limit {
		return nil, fmt.Errorf("%w: %s", errFileTooLarge, fh.Filename)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s", errFileTooLarge, fh.Filename)
	}
	return data, nil
}
