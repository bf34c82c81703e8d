package models

import (
	"time"

	"github.com/dmitrijs2005/betclever/internal/server/workflow"
)

// UserStatus is the per-user pair of review and community states.
type UserStatus struct {
	UserID          string
	UploadStatus    workflow.UploadStatus
	CommunityStatus workflow.CommunityStatus
	UpdatedAt       time.Time
}

// NewUserStatus returns the defaults for a freshly registered user.
func NewUserStatus(userID string) UserStatus {
	return UserStatus{
		UserID:          userID,
		UploadStatus:    workflow.UploadNotComplete,
		CommunityStatus: workflow.CommunityNotStarted,
	}
}
