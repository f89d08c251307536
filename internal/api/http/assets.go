package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

const maxUploadBytes = 32 << 20

// POST /assets  multipart "file" -> Media with a signed URL
func UploadAssetHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, quiz.Invalidf("file required"))
			return
		}
		defer f.Close()

		name := path.Base(strings.ReplaceAll(hdr.Filename, "\\", "/"))
		key := "questions/" + uuid.NewString() + "/" + name
		key, err = bs.Put(key, f)
		if err != nil {
			writeError(w, r, quiz.Internal("store upload", err))
			return
		}
		m := quiz.Media{
			Type:         mediaTypeOf(name),
			Path:         key,
			Filename:     path.Base(key),
			OriginalName: hdr.Filename,
			MimeType:     mime.TypeByExtension(path.Ext(name)),
			Size:         hdr.Size,
		}
		if u, err := bs.SignedURL(key); err == nil {
			m.URL = u
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

// GET /assets/*?token=  -> the blob at whatever follows /assets/. The token from
// SignedURL replaces the bearer header, so links work in <img src>.
func ServeAssetHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		if err := bs.Verify(key, r.URL.Query().Get("token")); err != nil {
			writeError(w, r, quiz.Forbiddenf("asset link is invalid or expired"))
			return
		}
		rc, err := bs.Get(key)
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrBadKey) {
			writeError(w, r, quiz.NotFoundf("asset %s not found", key))
			return
		}
		if err != nil {
			writeError(w, r, quiz.Internal("open asset", err))
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Cache-Control", "private, max-age=300")
		_, _ = io.Copy(w, rc)
	}
}

func mediaTypeOf(name string) quiz.MediaType {
	ct := mime.TypeByExtension(path.Ext(name))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return quiz.MediaImage
	case strings.HasPrefix(ct, "video/"):
		return quiz.MediaVideo
	default:
		return quiz.MediaRaw
	}
}
