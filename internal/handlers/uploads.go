// uploads.go reads multipart PDF uploads, validates them, and stores
// accepted files in the upload directory for the workers.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Shimizu-Technology/neet-question-api/internal/services/upload"
)

// multipartOverhead is extra body allowance for form boundaries and headers.
const multipartOverhead = 1 << 20

// stagedUpload is an accepted file written to the upload directory.
type stagedUpload struct {
	StoredName   string // uuid.pdf inside UploadDir
	OriginalName string
	Size         int64
}

// limitBody caps the request body at maxFiles uploads of the maximum size.
func (h *Handler) limitBody(c *gin.Context, maxFiles int) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(maxFiles)*h.MaxUploadBytes+multipartOverhead)
}

// checkUpload validates a file header and its first bytes without storing it.
func (h *Handler) checkUpload(fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, upload.HeadSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	return upload.Validate(fh.Filename, fh.Size, head[:n], h.MaxUploadBytes)
}

// readUpload validates an upload and returns its full contents.
func (h *Handler) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if err := h.checkUpload(fh); err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// stageUpload validates an upload and copies it into UploadDir under a
// random name, so user-supplied names never touch the filesystem.
func (h *Handler) stageUpload(fh *multipart.FileHeader) (*stagedUpload, error) {
	if err := h.checkUpload(fh); err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	staged := &stagedUpload{
		StoredName:   uuid.New().String() + ".pdf",
		OriginalName: filepath.Base(fh.Filename),
		Size:         fh.Size,
	}
	dst, err := os.OpenFile(filepath.Join(h.UploadDir, staged.StoredName), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		h.removeUpload(staged.StoredName)
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		h.removeUpload(staged.StoredName)
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	return staged, nil
}

// removeUpload deletes a stored file, ignoring files already gone.
func (h *Handler) removeUpload(storedName string) {
	if storedName == "" {
		return
	}
	if err := os.Remove(filepath.Join(h.UploadDir, storedName)); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️  Failed to remove upload %s: %v", storedName, err)
	}
}

// respondUploadError maps upload failures to HTTP responses.
// Validation failures keep their machine-readable code.
func respondUploadError(c *gin.Context, err error) {
	var uerr *upload.Error
	if errors.As(err, &uerr) {
		status := http.StatusBadRequest
		if uerr.Code == upload.CodeFileTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		abortJSON(c, status, uerr.Code, uerr.Message)
		return
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		abortJSON(c, http.StatusRequestEntityTooLarge, upload.CodeFileTooLarge,
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		return
	}

	log.Printf("❌ Upload failed: %v", err)
	abortJSON(c, http.StatusInternalServerError, "storage_error", "Failed to store the uploaded file")
}
