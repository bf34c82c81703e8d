package workflow

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/betclever/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSubmittable(t *testing.T) {
	tests := []struct {
		name       string
		hasProfile bool
		have       []DocumentCategory
		wantErr    bool
		wantMsg    string
	}{
		{name: "complete", hasProfile: true, have: []DocumentCategory{CategoryBank, CategoryIdentity, CategoryCard}},
		{name: "duplicates still complete", hasProfile: true, have: []DocumentCategory{CategoryBank, CategoryIdentity, CategoryCard, CategoryCard}},
		{name: "no profile", hasProfile: false, have: Categories(), wantErr: true, wantMsg: "incomplete: missing profile"},
		{name: "two categories", hasProfile: true, have: []DocumentCategory{CategoryIdentity, CategoryBank}, wantErr: true, wantMsg: "incomplete: missing card"},
		{name: "nothing", hasProfile: false, wantErr: true, wantMsg: "incomplete: missing profile, identity, card, bank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSubmittable(tt.hasProfile, tt.have)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrorIncomplete))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestMissing(t *testing.T) {
	assert.Equal(t, []DocumentCategory{CategoryIdentity, CategoryBank}, Missing([]DocumentCategory{CategoryCard}))
	assert.Nil(t, Missing(Categories()))
}

func TestTransitionTargets(t *testing.T) {
	for _, s := range UploadStatuses() {
		assert.Equal(t, s, AfterUpload(s), "upload never changes %s", s)
	}
	assert.Equal(t, UploadPendingReview, Submit())
	assert.Equal(t, UploadApproved, Approve())
	assert.Equal(t, UploadRejected, Reject())
	assert.Equal(t, UploadNotComplete, AfterUnlock())
}

func TestCheckCanSubmit(t *testing.T) {
	assert.NoError(t, CheckCanSubmit(UploadNotComplete))
	assert.NoError(t, CheckCanSubmit(UploadRejected))
	assert.ErrorIs(t, CheckCanSubmit(UploadPendingReview), common.ErrorLocked)
	assert.ErrorIs(t, CheckCanSubmit(UploadApproved), common.ErrorLocked)
}

func TestUploadStatusDisplay(t *testing.T) {
	assert.Equal(t, Display{Label: "Nicht vollständig", Color: "bg-gray-400", Progress: 33}, UploadNotComplete.Display())
	assert.Equal(t, Display{Label: "Wird überprüft", Color: "bg-amber-500", Progress: 66}, UploadPendingReview.Display())
	assert.Equal(t, Display{Label: "Bestätigt", Color: "bg-green-600", Progress: 100}, UploadApproved.Display())
	assert.Equal(t, Display{Label: "Abgelehnt", Color: "bg-red-600", Progress: 33}, UploadRejected.Display())
	assert.Equal(t, UploadNotComplete.Display(), UploadStatus("bogus").Display())
}

func TestCommunityStatusTable(t *testing.T) {
	stages := CommunityStatuses()
	require.Len(t, stages, 8)
	assert.Equal(t, CommunityNotStarted, stages[0])
	assert.Equal(t, CommunityAbgeschlossen, stages[7])

	for i, s := range stages {
		assert.Equal(t, i, s.Ordinal())
	}

	assert.Equal(t, 0, CommunityNotStarted.Display().Progress)
	assert.Equal(t, 14, CommunityKontaktaufnahme.Display().Progress)
	assert.Equal(t, 57, CommunityVerifizierung.Display().Progress)
	assert.Equal(t, 100, CommunityAbgeschlossen.Display().Progress)
	assert.Equal(t, "Wetten", CommunityWetten.Display().Label)
	assert.Equal(t, "bg-purple-500", CommunityRegistrierung.Display().Color)

	assert.Equal(t, -1, CommunityStatus("done").Ordinal())
	assert.Equal(t, "Nicht gestartet", CommunityStatus("done").Display().Label)
}

func TestParsers(t *testing.T) {
	st, err := ParseUploadStatus("approved")
	require.NoError(t, err)
	assert.Equal(t, UploadApproved, st)

	_, err = ParseUploadStatus("archived")
	assert.ErrorIs(t, err, common.ErrorValidation)

	cs, err := ParseCommunityStatus("wetten")
	require.NoError(t, err)
	assert.Equal(t, CommunityWetten, cs)

	_, err = ParseCommunityStatus("in_progress")
	assert.ErrorIs(t, err, common.ErrorValidation)

	c, err := ParseCategory("id")
	require.NoError(t, err)
	assert.Equal(t, CategoryIdentity, c)

	c, err = ParseCategory("bank")
	require.NoError(t, err)
	assert.Equal(t, CategoryBank, c)

	_, err = ParseCategory("passport")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestResolveUnlockField(t *testing.T) {
	tests := []struct {
		field   string
		want    UnlockTarget
		wantErr bool
	}{
		{field: "firstName", want: UnlockTarget{Field: "firstName", Profile: true}},
		{field: "postalCode", want: UnlockTarget{Field: "postalCode", Profile: true}},
		{field: "card", want: UnlockTarget{Field: "card", Category: CategoryCard}},
		{field: "id", want: UnlockTarget{Field: "id", Category: CategoryIdentity}},
		{field: "identity", want: UnlockTarget{Field: "identity", Category: CategoryIdentity}},
		{field: "email", wantErr: true},
		{field: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, err := ResolveUnlockField(tt.field)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrorValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
