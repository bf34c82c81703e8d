package memory

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/betclever/internal/common"
	"github.com/dmitrijs2005/betclever/internal/server/models"
	"github.com/dmitrijs2005/betclever/internal/server/workflow"
	"github.com/google/uuid"
)

type userRepo struct {
	st *Store
	tx *txHandle
}

func (r *userRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, existing := range r.st.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, fmt.Errorf("%w: users_email_lower_idx", common.ErrorAlreadyExists)
		}
		if u.IsRoot && existing.IsRoot {
			return nil, fmt.Errorf("%w: users_single_root_idx", common.ErrorAlreadyExists)
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now()
	keep(r.tx, r.st.s.users, u.ID)
	r.st.s.users[u.ID] = *u
	r.st.s.order = append(r.st.s.order, u.ID)
	id := u.ID
	r.tx.journal(func() { r.st.removeFromOrder(id) })
	return u, nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	u, ok := r.st.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepo) GetRoot(_ context.Context) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.IsRoot })
}

func (r *userRepo) find(match func(models.User) bool) (*models.User, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	for _, id := range r.st.s.order {
		if u := r.st.s.users[id]; match(u) {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *userRepo) List(_ context.Context) ([]*models.User, error) {
	return r.filter(func(models.User) bool { return true }), nil
}

func (r *userRepo) Search(_ context.Context, query string) ([]*models.User, error) {
	q := strings.ToLower(query)
	return r.filter(func(u models.User) bool {
		return strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Email), q)
	}), nil
}

func (r *userRepo) filter(match func(models.User) bool) []*models.User {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var out []*models.User
	for _, id := range r.st.s.order {
		if u := r.st.s.users[id]; match(u) {
			out = append(out, &u)
		}
	}
	return out
}

func (r *userRepo) Update(_ context.Context, u *models.User) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cur, ok := r.st.s.users[u.ID]
	if !ok {
		return common.ErrorNotFound
	}
	for id, other := range r.st.s.users {
		if id != u.ID && strings.EqualFold(other.Email, u.Email) {
			return fmt.Errorf("%w: users_email_lower_idx", common.ErrorAlreadyExists)
		}
	}
	cur.Username, cur.Email, cur.IsAdmin = u.Username, u.Email, u.IsAdmin
	keep(r.tx, r.st.s.users, u.ID)
	r.st.s.users[u.ID] = cur
	return nil
}

func (r *userRepo) SetPasswordHash(_ context.Context, id string, hash []byte) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cur, ok := r.st.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	cur.PasswordHash = append([]byte(nil), hash...)
	keep(r.tx, r.st.s.users, id)
	r.st.s.users[id] = cur
	return nil
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.s.users[id]
	if !ok || u.IsRoot {
		return common.ErrorNotFound
	}

	keep(r.tx, r.st.s.users, id)
	delete(r.st.s.users, id)
	if i := r.st.removeFromOrder(id); i >= 0 {
		r.tx.journal(func() { r.st.insertIntoOrder(i, id) })
	}
	keep(r.tx, r.st.s.profiles, id)
	delete(r.st.s.profiles, id)
	keep(r.tx, r.st.s.statuses, id)
	delete(r.st.s.statuses, id)
	for k := range r.st.s.docs {
		if k.userID == id {
			keep(r.tx, r.st.s.docs, k)
			delete(r.st.s.docs, k)
		}
	}
	for k, v := range r.st.s.refresh {
		if v.UserID == id {
			keep(r.tx, r.st.s.refresh, k)
			delete(r.st.s.refresh, k)
		}
	}
	for k, v := range r.st.s.resets {
		if v.UserID == id {
			keep(r.tx, r.st.s.resets, k)
			delete(r.st.s.resets, k)
		}
	}
	return nil
}

type profileRepo struct {
	st *Store
	tx *txHandle
}

func (r *profileRepo) Get(_ context.Context, userID string) (*models.Profile, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	p, ok := r.st.s.profiles[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (r *profileRepo) Save(_ context.Context, p *models.Profile) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.s.users[p.UserID]; !ok {
		return fmt.Errorf("db error: profile owner %s does not exist", p.UserID)
	}
	cur, ok := r.st.s.profiles[p.UserID]
	p.IsLocked = ok && cur.IsLocked
	p.UpdatedAt = time.Now()
	keep(r.tx, r.st.s.profiles, p.UserID)
	r.st.s.profiles[p.UserID] = *p
	return nil
}

func (r *profileRepo) SetLocked(_ context.Context, userID string, locked bool) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if p, ok := r.st.s.profiles[userID]; ok {
		p.IsLocked = locked
		p.UpdatedAt = time.Now()
		keep(r.tx, r.st.s.profiles, userID)
		r.st.s.profiles[userID] = p
	}
	return nil
}

type documentRepo struct {
	st *Store
	tx *txHandle
}

func (r *documentRepo) ListByUser(_ context.Context, userID string) ([]*models.Document, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var out []*models.Document
	for _, c := range workflow.Categories() {
		if d, ok := r.st.s.docs[docKey{userID, c}]; ok {
			d.Files = append([]models.FileRef(nil), d.Files...)
			out = append(out, &d)
		}
	}
	return out, nil
}

func (r *documentRepo) Get(_ context.Context, userID string, category workflow.DocumentCategory) (*models.Document, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	d, ok := r.st.s.docs[docKey{userID, category}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	d.Files = append([]models.FileRef(nil), d.Files...)
	return &d, nil
}

func (r *documentRepo) Put(_ context.Context, doc *models.Document) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.s.users[doc.UserID]; !ok {
		return fmt.Errorf("db error: document owner %s does not exist", doc.UserID)
	}
	key := docKey{doc.UserID, doc.Category}
	if cur, ok := r.st.s.docs[key]; ok {
		doc.ID, doc.IsLocked, doc.IsApproved = cur.ID, cur.IsLocked, cur.IsApproved
	} else if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.UpdatedAt = time.Now()
	stored := *doc
	stored.Files = append([]models.FileRef(nil), doc.Files...)
	keep(r.tx, r.st.s.docs, key)
	r.st.s.docs[key] = stored
	return nil
}

func (r *documentRepo) LockAll(_ context.Context, userID string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for k, d := range r.st.s.docs {
		if k.userID == userID {
			d.IsLocked = true
			keep(r.tx, r.st.s.docs, k)
			r.st.s.docs[k] = d
		}
	}
	return nil
}

func (r *documentRepo) SetLocked(_ context.Context, userID string, category workflow.DocumentCategory, locked bool) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	key := docKey{userID, category}
	if d, ok := r.st.s.docs[key]; ok {
		d.IsLocked = locked
		keep(r.tx, r.st.s.docs, key)
		r.st.s.docs[key] = d
	}
	return nil
}

type statusRepo struct {
	st *Store
	tx *txHandle
}

func (r *statusRepo) Create(_ context.Context, userID string) (*models.UserStatus, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.s.statuses[userID]; ok {
		return nil, fmt.Errorf("%w: user_status_pkey", common.ErrorAlreadyExists)
	}
	s := models.NewUserStatus(userID)
	s.UpdatedAt = time.Now()
	keep(r.tx, r.st.s.statuses, userID)
	r.st.s.statuses[userID] = s
	return &s, nil
}

func (r *statusRepo) Get(_ context.Context, userID string) (*models.UserStatus, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	s, ok := r.st.s.statuses[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (r *statusRepo) SetUploadStatus(_ context.Context, userID string, v workflow.UploadStatus) error {
	return r.update(userID, func(s *models.UserStatus) { s.UploadStatus = v })
}

func (r *statusRepo) SetCommunityStatus(_ context.Context, userID string, v workflow.CommunityStatus) error {
	return r.update(userID, func(s *models.UserStatus) { s.CommunityStatus = v })
}

func (r *statusRepo) update(userID string, fn func(*models.UserStatus)) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	s, ok := r.st.s.statuses[userID]
	if !ok {
		return common.ErrorNotFound
	}
	fn(&s)
	s.UpdatedAt = time.Now()
	keep(r.tx, r.st.s.statuses, userID)
	r.st.s.statuses[userID] = s
	return nil
}

type refreshRepo struct {
	st *Store
	tx *txHandle
}

func (r *refreshRepo) Create(_ context.Context, userID, token string, validity time.Duration) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	now := time.Now()
	keep(r.tx, r.st.s.refresh, token)
	r.st.s.refresh[token] = models.RefreshToken{
		ID: uuid.NewString(), UserID: userID, Token: token, ExpiresAt: now.Add(validity), CreatedAt: now,
	}
	return nil
}

func (r *refreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	rt, ok := r.st.s.refresh[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rt, nil
}

func (r *refreshRepo) Delete(_ context.Context, token string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	keep(r.tx, r.st.s.refresh, token)
	delete(r.st.s.refresh, token)
	return nil
}

func (r *refreshRepo) DeleteByUser(_ context.Context, userID string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for k, v := range r.st.s.refresh {
		if v.UserID == userID {
			keep(r.tx, r.st.s.refresh, k)
			delete(r.st.s.refresh, k)
		}
	}
	return nil
}

type resetRepo struct {
	st *Store
	tx *txHandle
}

func (r *resetRepo) Create(_ context.Context, pr *models.PasswordReset) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	pr.CreatedAt = time.Now()
	key := hex.EncodeToString(pr.TokenHash)
	keep(r.tx, r.st.s.resets, key)
	r.st.s.resets[key] = *pr
	return nil
}

func (r *resetRepo) Find(_ context.Context, tokenHash []byte) (*models.PasswordReset, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	pr, ok := r.st.s.resets[hex.EncodeToString(tokenHash)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &pr, nil
}

func (r *resetRepo) MarkUsed(_ context.Context, tokenHash []byte) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	key := hex.EncodeToString(tokenHash)
	pr, ok := r.st.s.resets[key]
	if !ok || pr.UsedAt != nil {
		return common.ErrorNotFound
	}
	now := time.Now()
	pr.UsedAt = &now
	keep(r.tx, r.st.s.resets, key)
	r.st.s.resets[key] = pr
	return nil
}

// removeFromOrder drops id from the listing order and returns its former
// index, or -1. Callers hold mu.
func (st *Store) removeFromOrder(id string) int {
	for i, oid := range st.s.order {
		if oid == id {
			st.s.order = append(st.s.order[:i:i], st.s.order[i+1:]...)
			return i
		}
	}
	return -1
}

func (st *Store) insertIntoOrder(i int, id string) {
	if i > len(st.s.order) {
		i = len(st.s.order)
	}
	st.s.order = append(st.s.order[:i:i], append([]string{id}, st.s.order[i:]...)...)
}
