package workflow

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/betclever/internal/common"
)

// Missing returns the required categories absent from have, in canonical order.
func Missing(have []DocumentCategory) []DocumentCategory {
	present := make(map[DocumentCategory]bool, len(have))
	for _, c := range have {
		present[c] = true
	}
	var missing []DocumentCategory
	for _, c := range categories {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// CheckSubmittable reports whether a member may submit for review: a saved
// profile and one document record per category are required.
func CheckSubmittable(hasProfile bool, have []DocumentCategory) error {
	var parts []string
	if !hasProfile {
		parts = append(parts, "profile")
	}
	for _, c := range Missing(have) {
		parts = append(parts, string(c))
	}
	if len(parts) > 0 {
		return fmt.Errorf("%w: missing %s", common.ErrorIncomplete, strings.Join(parts, ", "))
	}
	return nil
}

// AfterUpload is the upload status once files were added. Uploading never
// advances the review; only an explicit submit does.
func AfterUpload(current UploadStatus) UploadStatus {
	return current
}

// Submit is the status after a successful submit-for-review.
func Submit() UploadStatus { return UploadPendingReview }

// CheckCanSubmit rejects a submit while a review is pending or after an
// approval. Both states are left only through an admin decision or unlock.
func CheckCanSubmit(current UploadStatus) error {
	switch current {
	case UploadPendingReview:
		return fmt.Errorf("%w: already submitted for review", common.ErrorLocked)
	case UploadApproved:
		return fmt.Errorf("%w: already approved", common.ErrorLocked)
	}
	return nil
}

// Approve is the status set by an admin approval.
func Approve() UploadStatus { return UploadApproved }

// Reject is the status set by an admin rejection.
func Reject() UploadStatus { return UploadRejected }

// AfterUnlock is the status after any unlock. The reset applies whatever
// field was unlocked.
// TODO: confirm with product whether unlocking a single profile field should
// keep an approved status.
func AfterUnlock() UploadStatus { return UploadNotComplete }
