package contract

import "time"

type Party string

const (
	PartyCompany Party = "company"
	PartyClient  Party = "client"
)

// Signatory is one required signer on a generated contract. HasSigned is
// monotonic: it never reverts to false.
type Signatory struct {
	ID uint64 `gorm:"primaryKey;column:id" json:"-"`
	// Public identifier (32-char lowercase hex)
	SignatoryID   string `gorm:"size:32;uniqueIndex:ux_signatories_signatory_id" json:"signatory_id"`
	ApplicationID uint64 `gorm:"column:application_id;not null;index:idx_signatories_application" json:"-"`

	Party Party  `gorm:"size:16;not null" json:"party"`
	Name  string `gorm:"size:128;not null" json:"name"`
	Email string `gorm:"size:255" json:"email"`
	// Advisory unless the application enforces signing order.
	SigningOrder int `gorm:"not null;default:0" json:"signing_order"`

	HasSigned bool       `gorm:"not null;default:false" json:"has_signed"`
	SignedAt  *time.Time `json:"signed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Signatory) TableName() string { return "contract_signatories" }
