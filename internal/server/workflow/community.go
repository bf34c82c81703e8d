package workflow

import (
	"fmt"

	"github.com/dmitrijs2005/betclever/internal/common"
)

// CommunityStatus is a stage of the Tippgemeinschaft participation
// pipeline. Stages are ordered but admins may set any of them at any time.
type CommunityStatus string

const (
	CommunityNotStarted      CommunityStatus = "not_started"
	CommunityKontaktaufnahme CommunityStatus = "kontaktaufnahme"
	CommunityVorbereitung    CommunityStatus = "vorbereitung"
	CommunityRegistrierung   CommunityStatus = "registrierung"
	CommunityVerifizierung   CommunityStatus = "verifizierung"
	CommunityWetten          CommunityStatus = "wetten"
	CommunityAuszahlung      CommunityStatus = "auszahlung"
	CommunityAbgeschlossen   CommunityStatus = "abgeschlossen"
)

type communityStage struct {
	status CommunityStatus
	label  string
	color  string
}

var communityStages = []communityStage{
	{CommunityNotStarted, "Nicht gestartet", "bg-gray-400"},
	{CommunityKontaktaufnahme, "Kontaktaufnahme", "bg-blue-600"},
	{CommunityVorbereitung, "Vorbereitung", "bg-gray-600"},
	{CommunityRegistrierung, "Registrierung", "bg-purple-500"},
	{CommunityVerifizierung, "Verifizierung", "bg-amber-500"},
	{CommunityWetten, "Wetten", "bg-blue-500"},
	{CommunityAuszahlung, "Auszahlung", "bg-green-500"},
	{CommunityAbgeschlossen, "Abgeschlossen", "bg-green-600"},
}

// CommunityStatuses lists the stages in pipeline order.
func CommunityStatuses() []CommunityStatus {
	out := make([]CommunityStatus, len(communityStages))
	for i, s := range communityStages {
		out[i] = s.status
	}
	return out
}

// Ordinal is the zero-based position of s in the pipeline, or -1.
func (s CommunityStatus) Ordinal() int {
	for i, st := range communityStages {
		if st.status == s {
			return i
		}
	}
	return -1
}

func (s CommunityStatus) Valid() bool {
	return s.Ordinal() >= 0
}

// Display returns label, colour and progress (ordinal spread over 0..100).
// Unknown values render like not_started.
func (s CommunityStatus) Display() Display {
	i := s.Ordinal()
	if i < 0 {
		i = 0
	}
	st := communityStages[i]
	return Display{
		Label:    st.label,
		Color:    st.color,
		Progress: i * 100 / (len(communityStages) - 1),
	}
}

func ParseCommunityStatus(s string) (CommunityStatus, error) {
	st := CommunityStatus(s)
	if !st.Valid() {
		return "", common.NewValidationError("communityStatus", fmt.Sprintf("unknown community status %q", s))
	}
	return st, nil
}
