package user

import (
	"context"
	"errors"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrAccountDeactivated = errors.New("account deactivated")
)

const welcomeSubject = "Welcome to Kazi"

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []User, exec ...core.DBExecutor) error
		// CreateIdentity inserts the credentials row (email + password hash).
		CreateIdentity(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// CreateProfile inserts the profile + role row for an existing identity.
		CreateProfile(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// DeleteIdentity removes the credentials row; the compensating write
		// when profile creation fails.
		DeleteIdentity(ctx context.Context, id string, exec ...core.DBExecutor) error
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on FullName or Email.
		// Soft-deleted users are never returned.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, isActive, isDeleted *bool, exec ...core.DBExecutor) (User, error)
	}

	Service interface {
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		QueryInstructors(ctx context.Context, actor core.Actor, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		RegisterInstructor(ctx context.Context, actor core.Actor, ni NewInstructor) (User, error)
		UpdateProfile(ctx context.Context, actor core.Actor, up UpdateProfile) (User, error)
		ChangePassword(ctx context.Context, actor core.Actor, cp ChangePassword) (User, error)
		SetActive(ctx context.Context, actor core.Actor, id string, active bool) (User, error)
		SoftDelete(ctx context.Context, actor core.Actor, id string) error
		SetLastLogin(ctx context.Context, usr User) (User, error)
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedUsers); err != nil {
		if pkgerrors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if usr.IsDeleted {
		return User{}, ErrNotFound
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrNotFound
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	return usr, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) QueryInstructors(ctx context.Context, actor core.Actor, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if !actor.IsAdmin() {
		return nil, core.NewPermissionError("only admins can list instructors")
	}
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Role = core.RoleInstructor
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// RegisterInstructor provisions an instructor account in two writes:
// credentials first, then profile + role. If the second write fails the
// credentials row is deleted and the original failure surfaced, so a
// half-provisioned account never exists.
func (svc *service) RegisterInstructor(ctx context.Context, actor core.Actor, ni NewInstructor) (User, error) {
	if !actor.IsAdmin() {
		return User{}, core.NewPermissionError("only admins can register instructors")
	}

	now := time.Now().UTC()
	usr := User{
		Email:              ni.Email,
		FullName:           ni.FullName,
		Phone:              ni.Phone,
		Role:               core.RoleInstructor,
		IsActive:           true,
		MustChangePassword: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := usr.SetPassword(ni.Password); err != nil {
		return User{}, pkgerrors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateIdentity(ctx, usr)
	if err != nil {
		return User{}, core.NewDependencyError("creating instructor identity", err)
	}

	usr, err = svc.repo.CreateProfile(ctx, usr)
	if err != nil {
		if delErr := svc.repo.DeleteIdentity(ctx, usr.ID); delErr != nil {
			return User{}, core.NewDependencyError("rolling back instructor identity", delErr)
		}
		return User{}, core.NewDependencyError("creating instructor profile", err)
	}

	svc.sendWelcomeMail(usr)
	return usr, nil
}

func (svc *service) sendWelcomeMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      welcomeSubject,
		TemplateName: "welcome",
		TemplateData: struct {
			FullName string
		}{usr.FullName},
		BodyStr: "Your instructor account has been created. " +
			"Sign in with the password you received and change it on first login.",
	})
}

func (svc *service) UpdateProfile(ctx context.Context, actor core.Actor, up UpdateProfile) (User, error) {
	usr, err := svc.GetByID(ctx, actor.ID)
	if err != nil {
		return User{}, err
	}

	if up.FullName != "" {
		usr.FullName = up.FullName
	}
	if up.Phone != "" {
		usr.Phone = up.Phone
	}
	if up.AvatarURL != "" {
		usr.AvatarURL = up.AvatarURL
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil, nil)
}

// ChangePassword rotates the caller's own password and clears the
// MustChangePassword flag set at provisioning.
func (svc *service) ChangePassword(ctx context.Context, actor core.Actor, cp ChangePassword) (User, error) {
	usr, err := svc.GetByID(ctx, actor.ID)
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckPassword(cp.OldPassword); err != nil {
		return User{}, core.NewValidationError(err, core.FieldError{Field: "old_password", Error: "wrong password"})
	}
	if err = usr.SetPassword(cp.NewPassword); err != nil {
		return User{}, pkgerrors.Wrap(err, "hashing password")
	}
	usr.MustChangePassword = false
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil, nil)
}

func (svc *service) SetActive(ctx context.Context, actor core.Actor, id string, active bool) (User, error) {
	if !actor.IsAdmin() {
		return User{}, core.NewPermissionError("only admins can activate or deactivate accounts")
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, &active, nil)
}

// SoftDelete flags the account as deleted; it disappears from listings and
// can no longer authenticate. The row (and its task history) stays.
func (svc *service) SoftDelete(ctx context.Context, actor core.Actor, id string) error {
	if !actor.IsAdmin() {
		return core.NewPermissionError("only admins can delete accounts")
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	deleted := true
	inactive := false
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr, &inactive, &deleted)
	return err
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil, nil)
}
