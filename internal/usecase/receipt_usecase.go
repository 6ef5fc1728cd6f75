package usecase

import (
	"context"
	"strings"

	"github.com/iho/welth/internal/domain"
)

// MaxReceiptSize is the largest receipt image accepted, in bytes.
const MaxReceiptSize = 5 << 20

// ReceiptUseCase turns receipt images into draft transactions.
type ReceiptUseCase struct {
	classifier Classifier
}

// NewReceiptUseCase creates a new ReceiptUseCase.
func NewReceiptUseCase(classifier Classifier) *ReceiptUseCase {
	return &ReceiptUseCase{classifier: classifier}
}

// Scan classifies a receipt image. It returns a nil draft when the image is
// not a recognizable receipt.
func (uc *ReceiptUseCase) Scan(ctx context.Context, ownerID string, image []byte, mimeType string) (*domain.ReceiptDraft, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}
	if len(image) == 0 {
		return nil, domain.NewValidationError("file", "receipt image is empty")
	}
	if len(image) > MaxReceiptSize {
		return nil, domain.NewValidationError("file", "receipt image exceeds 5MB")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, domain.NewValidationError("file", "receipt must be an image")
	}

	draft, err := uc.classifier.Classify(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, nil
	}

	if !domain.IsExpenseCategory(draft.Category) {
		draft.Category = "other-expense"
	}

	return draft, nil
}
