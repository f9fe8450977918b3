package document

import (
	"time"

	"gorm.io/gorm"
)

type Type string

const (
	TypePersonal Type = "personal"
	TypeBusiness Type = "business"
)

type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

// Document is the source personal/business document record. Content lives in
// external object storage; we only keep the URL. Approved documents are
// locked: upserts against a locked document id fail until a replacement with
// a fresh id is uploaded.
type Document struct {
	ID uint64 `gorm:"primaryKey;column:id" json:"-"`
	// Public identifier (32-char lowercase hex)
	DocumentID string `gorm:"size:32;uniqueIndex:ux_documents_document_id" json:"document_id"`
	Type       Type   `gorm:"size:16;not null;uniqueIndex:ux_documents_natural_key" json:"type"`
	// Owning business or person, part of the natural key.
	OwnerID    string `gorm:"size:32;not null;uniqueIndex:ux_documents_natural_key" json:"owner_id"`
	FiscalYear int    `gorm:"uniqueIndex:ux_documents_natural_key" json:"fiscal_year,omitempty"`
	BankName   string `gorm:"size:64;uniqueIndex:ux_documents_natural_key" json:"bank_name,omitempty"`

	URL    string `gorm:"type:text" json:"url"`
	Locked bool   `gorm:"not null;default:false" json:"locked"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Document) TableName() string { return "documents" }

// Verification links an application to one document and records the review
// outcome. Unique per (application, type, document): re-verification updates
// the single existing row.
type Verification struct {
	ID            uint64 `gorm:"primaryKey;column:id" json:"-"`
	ApplicationID uint64 `gorm:"column:application_id;not null;uniqueIndex:ux_doc_verifications_key" json:"-"`
	DocumentType  Type   `gorm:"size:16;not null;uniqueIndex:ux_doc_verifications_key" json:"document_type"`
	DocumentID    string `gorm:"size:32;not null;uniqueIndex:ux_doc_verifications_key" json:"document_id"`

	Outcome         Outcome    `gorm:"size:16;not null;default:'pending'" json:"outcome"`
	VerifiedBy      string     `gorm:"size:32" json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Verification) TableName() string { return "document_verifications" }

// Ref identifies one document inside an application's review flow.
type Ref struct {
	Type       Type   `json:"type"`
	DocumentID string `json:"document_id"`
}
