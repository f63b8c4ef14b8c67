package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/kazi/core"
)

type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	FullName           string    `json:"full_name"`
	Phone              string    `json:"phone,omitempty"`
	AvatarURL          string    `json:"avatar_url,omitempty"`
	Role               string    `json:"role"`
	IsActive           bool      `json:"is_active"`
	IsDeleted          bool      `json:"-"`
	MustChangePassword bool      `json:"must_change_password"`
	PasswordHash       []byte    `json:"-"`
	CreatedAt          time.Time `json:"created_at"` // UTC
	UpdatedAt          time.Time `json:"updated_at"` // UTC
	LastLogin          time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool      { return u.Role == core.RoleAdmin }
func (u *User) IsInstructor() bool { return u.Role == core.RoleInstructor }

// Actor returns the session object threaded through core calls on behalf of
// this user.
func (u *User) Actor() core.Actor {
	return core.Actor{ID: u.ID, Role: u.Role}
}

// NewInstructor contains information needed to provision an instructor
// account.
type NewInstructor struct {
	Email           string `json:"email" validate:"required,email"`
	FullName        string `json:"full_name" validate:"required,max=255"`
	Phone           string `json:"phone" validate:"omitempty,max=50"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ni *NewInstructor) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ni.Email = core.CleanString(ni.Email, true /* lower */)
	ni.FullName = core.CleanString(ni.FullName)
	ni.Phone = core.CleanString(ni.Phone)

	if err := validate.Struct(ni); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, ni.Email)
}

// ChangePassword rotates a user's own password; the current password must
// check out first.
type ChangePassword struct {
	OldPassword        string `json:"old_password" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required,eqfield=NewPassword"`
}

func (cp *ChangePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(cp)
}

// UpdateProfile defines what information a user may change on their own
// profile.
type UpdateProfile struct {
	FullName  string `json:"full_name" validate:"omitempty,max=255"`
	Phone     string `json:"phone" validate:"omitempty,max=50"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.FullName = core.CleanString(up.FullName)
	up.Phone = core.CleanString(up.Phone)
	up.AvatarURL = core.CleanString(up.AvatarURL)
	return validate.Struct(up)
}

// GetFilter fetches a single User by exactly one of its fields.
type GetFilter struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
