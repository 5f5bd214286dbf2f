package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
)

// User mirrors an identity-provider account. The Credits balance is only ever
// mutated inside a ledger transaction (see internal/pkg/settlement and
// internal/pkg/payments); everything else may be updated freely.
type User struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	IdentityID        string         `gorm:"uniqueIndex;type:varchar(191);not null" json:"-" validate:"required"`
	Email             string         `gorm:"index;type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	Name              string         `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Role              string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Credits           int            `gorm:"not null;default:0" json:"credits"`
	PaymentCustomerID string         `gorm:"type:varchar(191);default:null;index" json:"-"`
	RagPartition      string         `gorm:"type:varchar(191);default:null" json:"-"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}
