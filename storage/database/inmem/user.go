package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

type UserRepository struct {
	db *DB

	// identities created without a profile yet; RegisterInstructor's two
	// write phases are modeled explicitly.
	pendingProfiles map[string]bool

	// FailProfileWrites makes CreateProfile fail; used to exercise the
	// provisioning rollback path.
	FailProfileWrites bool
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db, pendingProfiles: make(map[string]bool)}
}

func (repo *UserRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for id, u := range repo.db.users {
		if repo.pendingProfiles[id] {
			continue
		}
		users = append(users, *u)
	}
	return users
}

func (repo *UserRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}
	for _, usr := range repo.db.users {
		if usr.Email == email && !excluded[usr.ID] {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *UserRepository) CreateIdentity(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = uuid.New().String()
	repo.db.users[usr.ID] = &usr
	repo.pendingProfiles[usr.ID] = true
	return usr, nil
}

func (repo *UserRepository) CreateProfile(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.FailProfileWrites {
		return user.User{}, errInjectedFailure
	}
	stored, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	stored.FullName = usr.FullName
	stored.Phone = usr.Phone
	stored.AvatarURL = usr.AvatarURL
	stored.Role = usr.Role
	stored.IsActive = usr.IsActive
	stored.MustChangePassword = usr.MustChangePassword
	delete(repo.pendingProfiles, usr.ID)
	return *stored, nil
}

func (repo *UserRepository) DeleteIdentity(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.users, id)
	delete(repo.pendingProfiles, id)
	return nil
}

func (repo *UserRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.query() {
		if usr.Email == filter.Email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *UserRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.query() {
		if usr.IsDeleted {
			continue
		}
		if filter != nil && !matchUser(usr, filter) {
			continue
		}
		users = append(users, usr)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter.Role != "" && usr.Role != filter.Role {
		return false
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.FullName), s) && !strings.Contains(strings.ToLower(usr.Email), s) {
			return false
		}
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *UserRepository) UpdateUser(ctx context.Context, usr user.User, isActive, isDeleted *bool, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	stored.FullName = usr.FullName
	stored.Phone = usr.Phone
	stored.AvatarURL = usr.AvatarURL
	stored.MustChangePassword = usr.MustChangePassword
	if usr.PasswordHash != nil {
		stored.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		stored.IsActive = *isActive
	}
	if isDeleted != nil {
		stored.IsDeleted = *isDeleted
	}
	if !usr.LastLogin.IsZero() {
		stored.LastLogin = usr.LastLogin
	}
	stored.UpdatedAt = usr.UpdatedAt
	return *stored, nil
}
