package rest

import (
	"time"

	"github.com/dmitrijs2005/betclever/internal/server/models"
	"github.com/dmitrijs2005/betclever/internal/server/services"
	"github.com/dmitrijs2005/betclever/internal/server/workflow"
)

type userDTO struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	IsRoot    bool      `json:"isRoot"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUser(u *models.User) userDTO {
	return userDTO{ID: u.ID, Username: u.Username, Email: u.Email, IsAdmin: u.IsAdmin, IsRoot: u.IsRoot, CreatedAt: u.CreatedAt}
}

type statusDTO struct {
	UploadStatus     workflow.UploadStatus    `json:"uploadStatus"`
	Upload           workflow.Display         `json:"upload"`
	CommunityStatus  workflow.CommunityStatus `json:"communityStatus"`
	Community        workflow.Display         `json:"community"`
	CommunityOrdinal int                      `json:"communityOrdinal"`
	UpdatedAt        time.Time                `json:"updatedAt,omitzero"`
}

func toStatus(s models.UserStatus) statusDTO {
	return statusDTO{
		UploadStatus:     s.UploadStatus,
		Upload:           s.UploadStatus.Display(),
		CommunityStatus:  s.CommunityStatus,
		Community:        s.CommunityStatus.Display(),
		CommunityOrdinal: s.CommunityStatus.Ordinal(),
		UpdatedAt:        s.UpdatedAt,
	}
}

type profileDTO struct {
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Phone       string    `json:"phone"`
	Street      string    `json:"street"`
	HouseNumber string    `json:"houseNumber"`
	PostalCode  string    `json:"postalCode"`
	City        string    `json:"city"`
	IsLocked    bool      `json:"isLocked"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toProfile(p *models.Profile) *profileDTO {
	if p == nil {
		return nil
	}
	return &profileDTO{
		FirstName: p.FirstName, LastName: p.LastName, Phone: p.Phone, Street: p.Street,
		HouseNumber: p.HouseNumber, PostalCode: p.PostalCode, City: p.City,
		IsLocked: p.IsLocked, UpdatedAt: p.UpdatedAt,
	}
}

type fileDTO struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	URL         string `json:"url,omitempty"`
}

type documentDTO struct {
	ID         string                    `json:"id"`
	Category   workflow.DocumentCategory `json:"category"`
	IsLocked   bool                      `json:"isLocked"`
	IsApproved bool                      `json:"isApproved"`
	UpdatedAt  time.Time                 `json:"updatedAt"`
	Files      []fileDTO                 `json:"files"`
}

func toDocuments(views []services.DocumentView) []documentDTO {
	out := make([]documentDTO, 0, len(views))
	for _, v := range views {
		d := documentDTO{
			ID: v.ID, Category: v.Category, IsLocked: v.IsLocked, IsApproved: v.IsApproved,
			UpdatedAt: v.UpdatedAt, Files: make([]fileDTO, 0, len(v.Files)),
		}
		for _, f := range v.Files {
			d.Files = append(d.Files, fileDTO{Name: f.Name, ContentType: f.ContentType, Size: f.Size, URL: f.URL})
		}
		out = append(out, d)
	}
	return out
}

func toDocument(doc *models.Document) documentDTO {
	d := documentDTO{
		ID: doc.ID, Category: doc.Category, IsLocked: doc.IsLocked, IsApproved: doc.IsApproved,
		UpdatedAt: doc.UpdatedAt, Files: make([]fileDTO, 0, len(doc.Files)),
	}
	for _, f := range doc.Files {
		d.Files = append(d.Files, fileDTO{Name: f.Name, ContentType: f.ContentType, Size: f.Size})
	}
	return d
}

type tokensDTO struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	TokenType    string    `json:"tokenType"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func toTokens(p services.TokenPair) tokensDTO {
	return tokensDTO{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: "Bearer", ExpiresAt: p.ExpiresAt}
}

type loginDTO struct {
	tokensDTO
	User userDTO `json:"user"`
}

type accountDTO struct {
	User    userDTO     `json:"user"`
	Profile *profileDTO `json:"profile"`
	Status  statusDTO   `json:"status"`
}

type userSummaryDTO struct {
	userDTO
	Status statusDTO `json:"status"`
}

type userDetailDTO struct {
	User      userDTO       `json:"user"`
	Profile   *profileDTO   `json:"profile"`
	Status    statusDTO     `json:"status"`
	Documents []documentDTO `json:"documents"`
}

type lookupDTO struct {
	Value string `json:"value"`
	workflow.Display
	Ordinal *int `json:"ordinal,omitempty"`
}

type metaDTO struct {
	UploadStatuses    []lookupDTO                 `json:"uploadStatuses"`
	CommunityStatuses []lookupDTO                 `json:"communityStatuses"`
	Categories        []workflow.DocumentCategory `json:"categories"`
	UnlockFields      []string                    `json:"unlockFields"`
}

func buildMeta() metaDTO {
	m := metaDTO{Categories: workflow.Categories()}
	for _, s := range workflow.UploadStatuses() {
		m.UploadStatuses = append(m.UploadStatuses, lookupDTO{Value: string(s), Display: s.Display()})
	}
	for _, s := range workflow.CommunityStatuses() {
		ord := s.Ordinal()
		m.CommunityStatuses = append(m.CommunityStatuses, lookupDTO{Value: string(s), Display: s.Display(), Ordinal: &ord})
	}
	m.UnlockFields = append([]string(nil), workflow.ProfileFields...)
	for _, c := range workflow.Categories() {
		m.UnlockFields = append(m.UnlockFields, string(c))
	}
	return m
}
