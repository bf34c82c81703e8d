package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/betclever/internal/common"
	"github.com/dmitrijs2005/betclever/internal/dbx"
	"github.com/dmitrijs2005/betclever/internal/server/auth"
	"github.com/dmitrijs2005/betclever/internal/server/models"
	"github.com/dmitrijs2005/betclever/internal/server/workflow"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxParallelUploads bounds concurrent transfers of one upload request.
const maxParallelUploads = 4

type ProfileInput struct {
	FirstName   string `json:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"required,max=100"`
	Phone       string `json:"phone" validate:"required,max=32"`
	Street      string `json:"street" validate:"required,max=200"`
	HouseNumber string `json:"houseNumber" validate:"required,max=16"`
	PostalCode  string `json:"postalCode" validate:"required,max=16"`
	City        string `json:"city" validate:"required,max=100"`
}

// Upload is one file of a multipart upload request.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// FileView is a stored file plus a time-limited download link.
type FileView struct {
	models.FileRef
	URL string
}

// DocumentView is a document record with download links.
type DocumentView struct {
	*models.Document
	Files []FileView
}

// MemberService implements the member side of onboarding: profile,
// document upload and submit for review.
type MemberService struct {
	Deps
}

func NewMemberService(d Deps) *MemberService {
	return &MemberService{Deps: d}
}

// UpdateProfile saves the caller's profile. A locked profile is rejected
// with ErrorLocked.
func (s *MemberService) UpdateProfile(ctx context.Context, session *auth.Session, in ProfileInput) (*models.Profile, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	trimProfile(&in)
	if err := common.Validate(in); err != nil {
		return nil, err
	}

	p := &models.Profile{
		UserID:      session.UserID,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Phone:       in.Phone,
		Street:      in.Street,
		HouseNumber: in.HouseNumber,
		PostalCode:  in.PostalCode,
		City:        in.City,
	}

	err := s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.Repos.Profiles(tx)
		cur, err := repo.Get(ctx, session.UserID)
		switch {
		case err == nil:
			if cur.IsLocked {
				return fmt.Errorf("%w: profile", common.ErrorLocked)
			}
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}
		return repo.Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info(ctx, "profile saved", "user_id", session.UserID)
	return p, nil
}

// Documents returns the caller's document records with download links.
func (s *MemberService) Documents(ctx context.Context, session *auth.Session) ([]DocumentView, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	return documentViews(ctx, s.Deps, session.UserID)
}

// UploadDocuments stores files under category and appends them to the
// caller's record for it. Transfers run concurrently; the record is only
// written once every transfer succeeded.
func (s *MemberService) UploadDocuments(ctx context.Context, session *auth.Session, category string, files []Upload) (*models.Document, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	cat, err := workflow.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, common.NewValidationError("files", "at least one file is required")
	}
	for _, f := range files {
		if s.Config.MaxUploadBytes > 0 && f.Size > s.Config.MaxUploadBytes {
			return nil, common.NewValidationError("files", fmt.Sprintf("%s exceeds %d bytes", f.Name, s.Config.MaxUploadBytes))
		}
	}

	docs := s.Repos.Documents(s.DB)
	if cur, err := docs.Get(ctx, session.UserID, cat); err == nil && cur.IsLocked {
		return nil, fmt.Errorf("%w: %s", common.ErrorLocked, cat)
	} else if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	refs, err := s.transfer(ctx, session.UserID, cat, files)
	if err != nil {
		return nil, err
	}

	var doc *models.Document
	err = s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.Repos.Documents(tx)
		d, err := repo.Get(ctx, session.UserID, cat)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			d = &models.Document{UserID: session.UserID, Category: cat}
		case err != nil:
			return err
		case d.IsLocked:
			return fmt.Errorf("%w: %s", common.ErrorLocked, cat)
		}
		d.Files = append(d.Files, refs...)
		if err := repo.Put(ctx, d); err != nil {
			return err
		}

		statuses := s.Repos.Statuses(tx)
		st, err := statuses.Get(ctx, session.UserID)
		if err != nil {
			return err
		}
		if next := workflow.AfterUpload(st.UploadStatus); next != st.UploadStatus {
			if err := statuses.SetUploadStatus(ctx, session.UserID, next); err != nil {
				return err
			}
		}
		doc = d
		return nil
	})
	if err != nil {
		s.discard(ctx, refs)
		return nil, err
	}

	s.Metrics.FilesUploaded(string(cat), len(refs))
	s.logger().Info(ctx, "documents uploaded", "user_id", session.UserID, "category", cat, "files", len(refs))
	return doc, nil
}

// transfer puts every file into blob storage and waits for all of them.
// On failure the blobs already stored are removed.
func (s *MemberService) transfer(ctx context.Context, userID string, cat workflow.DocumentCategory, files []Upload) ([]models.FileRef, error) {
	refs := make([]models.FileRef, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)

	for i, f := range files {
		g.Go(func() error {
			body, contentType, err := sniff(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", f.Name, err)
			}
			key := StorageKey(userID, cat)
			if err := s.Blobs.Put(gctx, key, body, f.Size, contentType); err != nil {
				return err
			}
			refs[i] = models.FileRef{Key: key, Name: f.Name, ContentType: contentType, Size: f.Size}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.discard(ctx, refs)
		return nil, err
	}
	return refs, nil
}

func (s *MemberService) discard(ctx context.Context, refs []models.FileRef) {
	keys := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.Key != "" {
			keys = append(keys, r.Key)
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.Blobs.Delete(context.WithoutCancel(ctx), keys...); err != nil {
		s.logger().Warn(ctx, "removing orphaned blobs failed", "keys", keys, "error", err)
	}
}

// SubmitForReview locks the profile and every document and moves the
// upload status to pending review, all in one transaction.
func (s *MemberService) SubmitForReview(ctx context.Context, session *auth.Session) (*models.UserStatus, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	var status *models.UserStatus
	err := s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		uid := session.UserID
		statuses := s.Repos.Statuses(tx)

		cur, err := statuses.Get(ctx, uid)
		if err != nil {
			return err
		}
		if err := workflow.CheckCanSubmit(cur.UploadStatus); err != nil {
			return err
		}

		hasProfile := true
		if _, err := s.Repos.Profiles(tx).Get(ctx, uid); err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				return err
			}
			hasProfile = false
		}

		docs, err := s.Repos.Documents(tx).ListByUser(ctx, uid)
		if err != nil {
			return err
		}
		have := make([]workflow.DocumentCategory, 0, len(docs))
		for _, d := range docs {
			have = append(have, d.Category)
		}
		if err := workflow.CheckSubmittable(hasProfile, have); err != nil {
			return err
		}

		if err := s.Repos.Profiles(tx).SetLocked(ctx, uid, true); err != nil {
			return err
		}
		if err := s.Repos.Documents(tx).LockAll(ctx, uid); err != nil {
			return err
		}
		if err := statuses.SetUploadStatus(ctx, uid, workflow.Submit()); err != nil {
			return err
		}
		status, err = statuses.Get(ctx, uid)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.Transition("submit")
	s.logger().Info(ctx, "submitted for review", "user_id", session.UserID)
	return status, nil
}

// StorageKey returns a fresh blob key {user}/{category}/{uuid}.
func StorageKey(userID string, cat workflow.DocumentCategory) string {
	return userID + "/" + string(cat) + "/" + uuid.NewString()
}

// sniff detects the content type from the first 512 bytes. The declared
// type is kept only when detection gives up. A seekable body is rewound
// and returned as is, so blob storage can still seek it.
func sniff(f Upload) (io.Reader, string, error) {
	var (
		body io.Reader
		head []byte
	)
	if rs, ok := f.Body.(io.ReadSeeker); ok {
		start, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, "", err
		}
		buf := make([]byte, 512)
		n, err := io.ReadFull(rs, buf)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, "", err
		}
		if _, err := rs.Seek(start, io.SeekStart); err != nil {
			return nil, "", err
		}
		body, head = rs, buf[:n]
	} else {
		br := bufio.NewReaderSize(f.Body, 512)
		peek, err := br.Peek(512)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return nil, "", err
		}
		body, head = br, peek
	}

	ct := http.DetectContentType(head)
	if ct == "application/octet-stream" && f.ContentType != "" {
		ct = f.ContentType
	}
	return body, ct, nil
}

func trimProfile(in *ProfileInput) {
	for _, p := range []*string{&in.FirstName, &in.LastName, &in.Phone, &in.Street, &in.HouseNumber, &in.PostalCode, &in.City} {
		*p = strings.TrimSpace(*p)
	}
}

func loadProfile(ctx context.Context, d Deps, db dbx.DBTX, userID string) (*models.Profile, error) {
	p, err := d.Repos.Profiles(db).Get(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return p, err
}

func loadStatus(ctx context.Context, d Deps, db dbx.DBTX, userID string) (models.UserStatus, error) {
	st, err := d.Repos.Statuses(db).Get(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return models.NewUserStatus(userID), nil
	}
	if err != nil {
		return models.UserStatus{}, err
	}
	return *st, nil
}

// documentViews lists userID's records and presigns each file. A file that
// cannot be signed keeps an empty URL.
func documentViews(ctx context.Context, d Deps, userID string) ([]DocumentView, error) {
	docs, err := d.Repos.Documents(d.DB).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]DocumentView, 0, len(docs))
	for _, doc := range docs {
		v := DocumentView{Document: doc, Files: make([]FileView, 0, len(doc.Files))}
		for _, f := range doc.Files {
			u, err := d.Blobs.PresignGet(ctx, f.Key, d.Config.PresignTTL)
			if err != nil {
				d.logger().Warn(ctx, "presign failed", "user_id", userID, "key", f.Key, "error", err)
			}
			v.Files = append(v.Files, FileView{FileRef: f, URL: u})
		}
		out = append(out, v)
	}
	return out, nil
}
