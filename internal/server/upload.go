package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// audioExtension is the only extension the pipeline produces; everything
// else is rejected before any bytes are written.
const audioExtension = ".mp3"

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r, "upload")

	// The size limit is enforced here regardless of any client-side check.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			log.WithField("limit_bytes", maxErr.Limit).Warn("upload over size limit")
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the %d byte limit", maxErr.Limit))
			return
		}
		log.WithError(err).Warn("missing file input")
		writeError(w, http.StatusBadRequest, "missing file input")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != audioExtension {
		log.WithField("extension", ext).Warn("invalid upload extension")
		writeError(w, http.StatusBadRequest, "invalid input type, please upload an MP3 file")
		return
	}

	// Colliding display names must not collide on disk: the physical name
	// gets a fresh unique token while the record keeps the original name.
	base := strings.TrimSuffix(filepath.Base(header.Filename), ext)
	diskName := fmt.Sprintf("%s-%s%s", base, uuid.New().String(), ext)
	destination := filepath.Join(s.cfg.UploadDir(), diskName)

	if err := writeFileDurably(destination, file); err != nil {
		log.WithError(err).Error("write upload failed")
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	asset, err := s.store.Put(r.Context(), header.Filename, destination)
	if err != nil {
		_ = os.Remove(destination)
		log.WithError(err).Error("record upload failed")
		writeError(w, http.StatusInternalServerError, "failed to record upload")
		return
	}

	log.WithField("asset_id", asset.ID).WithField("name", asset.Name).Info("asset stored")
	writeJSON(w, http.StatusCreated, map[string]string{"id": asset.ID, "name": asset.Name})
}

// writeFileDurably copies src to path and syncs before returning, so the
// asset id is never visible ahead of its bytes.
func writeFileDurably(path string, src io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return fmt.Errorf("sync upload file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close upload file: %w", err)
	}
	return nil
}
