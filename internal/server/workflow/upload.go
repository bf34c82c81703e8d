package workflow

import (
	"fmt"

	"github.com/dmitrijs2005/betclever/internal/common"
)

// UploadStatus is the reviewer-facing state of a member's documents.
type UploadStatus string

const (
	UploadNotComplete   UploadStatus = "not_complete"
	UploadPendingReview UploadStatus = "pending_review"
	UploadApproved      UploadStatus = "approved"
	UploadRejected      UploadStatus = "rejected"
)

// Display is what the UI renders for a status value.
type Display struct {
	Label    string `json:"label"`
	Color    string `json:"color"`
	Progress int    `json:"progress"`
}

var uploadStatuses = []UploadStatus{UploadNotComplete, UploadPendingReview, UploadApproved, UploadRejected}

var uploadDisplay = map[UploadStatus]Display{
	UploadNotComplete:   {Label: "Nicht vollständig", Color: "bg-gray-400", Progress: 33},
	UploadPendingReview: {Label: "Wird überprüft", Color: "bg-amber-500", Progress: 66},
	UploadApproved:      {Label: "Bestätigt", Color: "bg-green-600", Progress: 100},
	UploadRejected:      {Label: "Abgelehnt", Color: "bg-red-600", Progress: 33},
}

// UploadStatuses lists every upload status in state-machine order.
func UploadStatuses() []UploadStatus {
	return append([]UploadStatus(nil), uploadStatuses...)
}

func (s UploadStatus) Valid() bool {
	_, ok := uploadDisplay[s]
	return ok
}

// Display returns the label, colour and progress for s. Unknown values
// render like not_complete.
func (s UploadStatus) Display() Display {
	if d, ok := uploadDisplay[s]; ok {
		return d
	}
	return uploadDisplay[UploadNotComplete]
}

func ParseUploadStatus(s string) (UploadStatus, error) {
	st := UploadStatus(s)
	if !st.Valid() {
		return "", common.NewValidationError("uploadStatus", fmt.Sprintf("unknown upload status %q", s))
	}
	return st, nil
}
