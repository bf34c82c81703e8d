package services

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/dmitrijs2005/betclever/internal/common"
	"github.com/dmitrijs2005/betclever/internal/server/auth"
	"github.com/dmitrijs2005/betclever/internal/server/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestRequireAdmin(t *testing.T) {
	assert.ErrorIs(t, RequireAdmin(nil), common.ErrorUnauthorized)
	assert.ErrorIs(t, RequireAdmin(&auth.Session{UserID: "u"}), common.ErrorForbidden)
	assert.NoError(t, RequireAdmin(&auth.Session{UserID: "u", IsAdmin: true}))
}

// Every admin operation fails for members and leaves the store untouched.
func TestAdminOperations_NonAdminChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.root(t)
	anna := f.register(t, "anna")
	bob := f.register(t, "bob")
	f.saveProfile(t, bob)
	f.upload(t, bob, "identity", "id")
	f.upload(t, bob, "card", "card")
	f.upload(t, bob, "bank", "bank")
	_, err := f.member.SubmitForReview(ctx, bob)
	require.NoError(t, err)

	snapshot := func() any {
		users, err := f.store.Users(nil).List(ctx)
		require.NoError(t, err)
		st, err := f.store.Statuses(nil).Get(ctx, bob.UserID)
		require.NoError(t, err)
		p, err := f.store.Profiles(nil).Get(ctx, bob.UserID)
		require.NoError(t, err)
		docs, err := f.store.Documents(nil).ListByUser(ctx, bob.UserID)
		require.NoError(t, err)
		var locks []bool
		for _, d := range docs {
			locks = append(locks, d.IsLocked)
		}
		accounts := map[string]bool{}
		for _, u := range users {
			accounts[u.Username] = u.IsAdmin
		}
		return []any{accounts, st.UploadStatus, st.CommunityStatus, p.IsLocked, locks, len(f.blobs.Keys())}
	}
	before := snapshot()

	ops := map[string]func(s *auth.Session) error{
		"list": func(s *auth.Session) error { _, err := f.admin.ListUsers(ctx, s, ""); return err },
		"search": func(s *auth.Session) error {
			_, err := f.admin.ListUsers(ctx, s, "bob")
			return err
		},
		"get": func(s *auth.Session) error { _, err := f.admin.GetUser(ctx, s, bob.UserID); return err },
		"update": func(s *auth.Session) error {
			_, err := f.admin.UpdateUser(ctx, s, bob.UserID, UpdateUserInput{Username: ptr("x"), IsAdmin: ptr(true)})
			return err
		},
		"password": func(s *auth.Session) error {
			return f.admin.SetUserPassword(ctx, s, bob.UserID, SetPasswordInput{Password: "hijacked123"})
		},
		"approve": func(s *auth.Session) error { _, err := f.admin.Approve(ctx, s, bob.UserID); return err },
		"reject":  func(s *auth.Session) error { _, err := f.admin.Reject(ctx, s, bob.UserID); return err },
		"community": func(s *auth.Session) error {
			_, err := f.admin.SetCommunityStatus(ctx, s, bob.UserID, "wetten")
			return err
		},
		"unlock": func(s *auth.Session) error { _, err := f.admin.UnlockField(ctx, s, bob.UserID, "card"); return err },
		"delete": func(s *auth.Session) error { return f.admin.DeleteUser(ctx, s, bob.UserID) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(anna), common.ErrorForbidden)
			assert.ErrorIs(t, op(nil), common.ErrorUnauthorized)
			assert.Equal(t, before, snapshot())
		})
	}

	_, err = f.auth.Login(ctx, LoginInput{Email: "bob@example.com", Password: "password123"})
	assert.NoError(t, err)
}

func TestRootAdminProtection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.root(t)

	promoted := f.register(t, "carla")
	_, err := f.admin.UpdateUser(ctx, root, promoted.UserID, UpdateUserInput{IsAdmin: ptr(true)})
	require.NoError(t, err)
	carla := &auth.Session{UserID: promoted.UserID, IsAdmin: true}

	for _, s := range []*auth.Session{root, carla} {
		_, err = f.admin.UpdateUser(ctx, s, root.UserID, UpdateUserInput{IsAdmin: ptr(false)})
		assert.ErrorIs(t, err, common.ErrorForbidden)
		assert.ErrorIs(t, err, common.ErrorRootAdmin)

		err = f.admin.DeleteUser(ctx, s, root.UserID)
		assert.ErrorIs(t, err, common.ErrorForbidden)
	}

	u, err := f.store.Users(nil).GetByID(ctx, root.UserID)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
	assert.True(t, u.IsRoot)

	u, err = f.admin.UpdateUser(ctx, carla, root.UserID, UpdateUserInput{Username: ptr("owner"), IsAdmin: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, "owner", u.Username)

	_, err = f.admin.UpdateUser(ctx, root, carla.UserID, UpdateUserInput{IsAdmin: ptr(false)})
	require.NoError(t, err)
}

func TestBootstrapRoot_Once(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.root(t)

	_, err := f.admin.BootstrapRoot(ctx, BootstrapRootInput{Username: "r2", Email: "r2@betclever.de", Password: "rootpassword"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = f.admin.BootstrapRoot(ctx, BootstrapRootInput{Username: "r3", Email: "bad", Password: "x"})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestUnlockField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.root(t)
	anna := f.register(t, "anna")
	f.saveProfile(t, anna)
	f.upload(t, anna, "identity", "i")
	f.upload(t, anna, "card", "c")
	f.upload(t, anna, "bank", "b")
	_, err := f.member.SubmitForReview(ctx, anna)
	require.NoError(t, err)
	_, err = f.admin.Reject(ctx, root, anna.UserID)
	require.NoError(t, err)

	_, err = f.admin.UnlockField(ctx, root, anna.UserID, "shoeSize")
	require.ErrorIs(t, err, common.ErrorValidation)
	st, err := f.store.Statuses(nil).Get(ctx, anna.UserID)
	require.NoError(t, err)
	assert.Equal(t, workflow.UploadRejected, st.UploadStatus, "unknown field changes nothing")

	st, err = f.admin.UnlockField(ctx, root, anna.UserID, "postalCode")
	require.NoError(t, err)
	assert.Equal(t, workflow.UploadNotComplete, st.UploadStatus)
	p, err := f.store.Profiles(nil).Get(ctx, anna.UserID)
	require.NoError(t, err)
	assert.False(t, p.IsLocked)
	docs, err := f.store.Documents(nil).ListByUser(ctx, anna.UserID)
	require.NoError(t, err)
	for _, d := range docs {
		assert.True(t, d.IsLocked, d.Category)
	}

	st, err = f.admin.UnlockField(ctx, root, anna.UserID, "id")
	require.NoError(t, err)
	assert.Equal(t, workflow.UploadNotComplete, st.UploadStatus)
	d, err := f.store.Documents(nil).Get(ctx, anna.UserID, workflow.CategoryIdentity)
	require.NoError(t, err)
	assert.False(t, d.IsLocked)

	_, err = f.admin.UnlockField(ctx, root, "missing", "card")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSetCommunityStatus_AnyOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.root(t)
	anna := f.register(t, "anna")

	for _, stage := range []string{"auszahlung", "kontaktaufnahme", "abgeschlossen", "not_started"} {
		st, err := f.admin.SetCommunityStatus(ctx, root, anna.UserID, stage)
		require.NoError(t, err)
		assert.Equal(t, workflow.CommunityStatus(stage), st.CommunityStatus)
		assert.Equal(t, workflow.UploadNotComplete, st.UploadStatus)
	}

	_, err := f.admin.SetCommunityStatus(ctx, root, anna.UserID, "finished")
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, err = f.admin.SetCommunityStatus(ctx, root, "missing", "wetten")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestApproveReject_NoPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.root(t)
	anna := f.register(t, "anna")

	st, err := f.admin.Reject(ctx, root, anna.UserID)
	require.NoError(t, err)
	assert.Equal(t, workflow.UploadRejected, st.UploadStatus)
	st, err = f.admin.Approve(ctx, root, anna.UserID)
	require.NoError(t, err)
	assert.Equal(t, workflow.UploadApproved, st.UploadStatus)

	_, err = f.admin.Approve(ctx, root, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListUsersAndGetUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.root(t)
	anna := f.register(t, "anna")
	f.register(t, "bob")
	f.saveProfile(t, anna)
	f.upload(t, anna, "card", "%PDF-1.4 card")

	all, err := f.admin.ListUsers(ctx, root, "  ")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	found, err := f.admin.ListUsers(ctx, root, "ANN")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, anna.UserID, found[0].User.ID)
	assert.Equal(t, workflow.UploadNotComplete, found[0].Status.UploadStatus)

	found, err = f.admin.ListUsers(ctx, root, "example.com")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	d, err := f.admin.GetUser(ctx, root, anna.UserID)
	require.NoError(t, err)
	assert.Equal(t, "anna", d.User.Username)
	require.NotNil(t, d.Profile)
	require.Len(t, d.Documents, 1)
	require.Len(t, d.Documents[0].Files, 1)
	assert.True(t, strings.HasPrefix(d.Documents[0].Files[0].URL, "http://blobs.local/"+url.PathEscape(anna.UserID+"/card/")), d.Documents[0].Files[0].URL)
	assert.Contains(t, d.Documents[0].Files[0].URL, "?expires=")

	_, err = f.admin.GetUser(ctx, root, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdateUser_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.root(t)
	anna := f.register(t, "anna")
	f.register(t, "bob")

	_, err := f.admin.UpdateUser(ctx, root, anna.UserID, UpdateUserInput{Email: ptr("BOB@example.com")})
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.admin.UpdateUser(ctx, root, anna.UserID, UpdateUserInput{Email: ptr("nope")})
	assert.ErrorIs(t, err, common.ErrorValidation)

	u, err := f.admin.UpdateUser(ctx, root, anna.UserID, UpdateUserInput{Email: ptr("anna@betclever.de")})
	require.NoError(t, err)
	assert.Equal(t, "anna@betclever.de", u.Email)
	assert.Equal(t, "anna", u.Username)
}

func TestSetUserPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.root(t)
	f.register(t, "anna")
	res, err := f.auth.Login(ctx, LoginInput{Email: "anna@example.com", Password: "password123"})
	require.NoError(t, err)

	err = f.admin.SetUserPassword(ctx, root, res.User.ID, SetPasswordInput{Password: "short"})
	assert.ErrorIs(t, err, common.ErrorValidation)

	require.NoError(t, f.admin.SetUserPassword(ctx, root, res.User.ID, SetPasswordInput{Password: "changed-pass"}))
	_, err = f.auth.Login(ctx, LoginInput{Email: "anna@example.com", Password: "changed-pass"})
	assert.NoError(t, err)
	_, err = f.auth.RefreshToken(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	err = f.admin.SetUserPassword(ctx, root, "missing", SetPasswordInput{Password: "changed-pass"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDeleteUser_RemovesRecordsAndBlobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.root(t)
	anna := f.register(t, "anna")
	bob := f.register(t, "bob")
	f.upload(t, anna, "card", "anna card")
	f.upload(t, anna, "bank", "anna bank", "anna bank 2")
	f.upload(t, bob, "card", "bob card")
	require.Len(t, f.blobs.Keys(), 4)

	require.NoError(t, f.admin.DeleteUser(ctx, root, anna.UserID))

	_, err := f.store.Users(nil).GetByID(ctx, anna.UserID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = f.store.Statuses(nil).Get(ctx, anna.UserID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	docs, err := f.store.Documents(nil).ListByUser(ctx, anna.UserID)
	require.NoError(t, err)
	assert.Empty(t, docs)

	keys := f.blobs.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], bob.UserID+"/card/")

	assert.ErrorIs(t, f.admin.DeleteUser(ctx, root, anna.UserID), common.ErrorNotFound)
}
