package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/iho/welth/internal/adapter/http/dto"
	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

// ReceiptService defines the behavior needed by ReceiptHandler.
type ReceiptService interface {
	Scan(ctx context.Context, ownerID string, image []byte, mimeType string) (*domain.ReceiptDraft, error)
}

// ScanObserver records receipt scan outcomes.
type ScanObserver interface {
	ObserveReceiptScan(err error)
}

// ReceiptHandler handles receipt uploads.
type ReceiptHandler struct {
	receiptUC ReceiptService
	observer  ScanObserver
}

// NewReceiptHandler creates a new ReceiptHandler. observer may be nil.
func NewReceiptHandler(receiptUC ReceiptService, observer ScanObserver) *ReceiptHandler {
	return &ReceiptHandler{receiptUC: receiptUC, observer: observer}
}

// Scan reads the multipart "file" field and returns the suggested transaction.
func (h *ReceiptHandler) Scan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, usecase.MaxReceiptSize+(64<<10))

	file, header, err := r.FormFile("file")
	if err != nil {
		handleError(w, r, domain.NewValidationError("file", "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, usecase.MaxReceiptSize+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handleError(w, r, domain.NewValidationError("file", "receipt image exceeds 5MB"))
			return
		}
		handleError(w, r, err)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}

	draft, err := h.receiptUC.Scan(r.Context(), owner(r), image, mimeType)
	if h.observer != nil {
		h.observer.ObserveReceiptScan(err)
	}
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ScanFromDomain(draft))
}
