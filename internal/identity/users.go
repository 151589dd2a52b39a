package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/leafsii/leafsii-cms/internal/domain"
	"github.com/leafsii/leafsii-cms/internal/policy"
)

// UserInput carries the admin-editable user fields. An empty Password on
// update keeps the current one.
type UserInput struct {
	Username string
	Email    string
	FullName string
	Role     string
	Password string
}

// ProfileInput carries a user's self-service changes. Password fields are
// only consulted when NewPassword is set.
type ProfileInput struct {
	Username        string
	Email           string
	FullName        string
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

func (in *UserInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Role = strings.TrimSpace(in.Role)
	if in.Role == "" {
		in.Role = entities.RoleAuthor
	}
}

func validateIdentity(username, email string) error {
	if username == "" {
		return domain.Invalid("username", "Username is required.")
	}
	if len(username) > 80 {
		return domain.Invalid("username", "Username must be at most 80 characters.")
	}
	if email == "" || !strings.Contains(email, "@") {
		return domain.Invalid("email", "A valid email address is required.")
	}
	return nil
}

func (s *Service) checkUnique(ctx context.Context, username, email, exceptID string) error {
	taken, err := s.taken(ctx, "username", username, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return domain.Invalid("username", "Username %q is already taken.", username)
	}
	taken, err = s.taken(ctx, "email", email, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return domain.Invalid("email", "Email %q is already registered.", email)
	}
	return nil
}

func (s *Service) CreateUser(ctx context.Context, caller *domain.Caller, in UserInput) (*entities.User, error) {
	if err := policy.RequireRole(caller, entities.RoleAdmin); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validateIdentity(in.Username, in.Email); err != nil {
		return nil, err
	}
	if !policy.ValidRole(in.Role) {
		return nil, domain.Invalid("role", "Unknown role %q.", in.Role)
	}
	if err := validPassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var created *entities.User
	err = s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		if err := s.checkUnique(ctx, in.Username, in.Email, ""); err != nil {
			return err
		}
		user := &entities.User{
			Username:     in.Username,
			Email:        in.Email,
			FullName:     in.FullName,
			Role:         in.Role,
			PasswordHash: hash,
		}
		record, err := s.users.Create(ctx, user.Record())
		if err != nil {
			return domain.FromStorage("create user", err)
		}
		created = entities.UserFromRecord(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMutation(ctx, "user", "create")
	s.logger.Infow("User created", "user_id", created.ID, "username", created.Username, "by", caller.Username)
	return created, nil
}

// UpdateUser edits any user. Demoting the sole admin is refused.
func (s *Service) UpdateUser(ctx context.Context, caller *domain.Caller, id string, in UserInput) (*entities.User, error) {
	if err := policy.RequireRole(caller, entities.RoleAdmin); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validateIdentity(in.Username, in.Email); err != nil {
		return nil, err
	}
	if !policy.ValidRole(in.Role) {
		return nil, domain.Invalid("role", "Unknown role %q.", in.Role)
	}
	var hash string
	if in.Password != "" {
		if err := validPassword(in.Password); err != nil {
			return nil, err
		}
		var err error
		if hash, err = s.hashPassword(in.Password); err != nil {
			return nil, err
		}
	}

	var updated *entities.User
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		current, err := s.getUser(ctx, id)
		if err != nil {
			return err
		}
		if current.IsAdmin() && in.Role != entities.RoleAdmin {
			if err := s.guardLastAdmin(ctx); err != nil {
				return err
			}
		}
		if err := s.checkUnique(ctx, in.Username, in.Email, id); err != nil {
			return err
		}

		changes := interfaces.Record{
			"username":  in.Username,
			"email":     in.Email,
			"full_name": in.FullName,
			"role":      in.Role,
		}
		if hash != "" {
			changes["password_hash"] = hash
		}
		record, err := s.users.Update(ctx, interfaces.StringID(id), changes)
		if err != nil {
			return domain.FromStorage("update user", err)
		}
		updated = entities.UserFromRecord(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMutation(ctx, "user", "update")
	s.logger.Infow("User updated", "user_id", id, "by", caller.Username)
	return updated, nil
}

// DeleteUser removes a user. The last admin and users who still author
// posts cannot be removed.
func (s *Service) DeleteUser(ctx context.Context, caller *domain.Caller, id string) error {
	if err := policy.RequireRole(caller, entities.RoleAdmin); err != nil {
		return err
	}

	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		target, err := s.getUser(ctx, id)
		if err != nil {
			return err
		}
		if target.IsAdmin() {
			if err := s.guardLastAdmin(ctx); err != nil {
				return err
			}
		}
		owned, err := s.posts.Count(ctx, &interfaces.Query{
			Where: interfaces.Where(map[string]interface{}{"author_id": id}),
		})
		if err != nil {
			return domain.FromStorage("count posts", err)
		}
		if owned > 0 {
			return domain.Invalid("", "User %s still authors %d post(s). Delete or reassign them first.", target.Username, owned)
		}
		if err := s.users.Delete(ctx, interfaces.StringID(id)); err != nil {
			return domain.FromStorage("delete user", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordMutation(ctx, "user", "delete")
	s.logger.Infow("User deleted", "user_id", id, "by", caller.Username)
	return nil
}

// guardLastAdmin runs inside the caller's transaction, before the admin is removed
func (s *Service) guardLastAdmin(ctx context.Context) error {
	admins, err := s.countAdmins(ctx)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return domain.ErrLastAdmin
	}
	return nil
}

// UpdateProfile applies a user's changes to their own account
func (s *Service) UpdateProfile(ctx context.Context, caller *domain.Caller, in ProfileInput) (*entities.User, error) {
	if err := policy.RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if err := validateIdentity(username, email); err != nil {
		return nil, err
	}
	if in.NewPassword != "" {
		if err := validPassword(in.NewPassword); err != nil {
			return nil, err
		}
		if in.NewPassword != in.ConfirmPassword {
			return nil, domain.Invalid("confirm_password", "New passwords do not match.")
		}
	}

	var updated *entities.User
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		current, err := s.getUser(ctx, caller.UserID)
		if err != nil {
			return err
		}
		if err := s.checkUnique(ctx, username, email, current.ID); err != nil {
			return err
		}

		changes := interfaces.Record{
			"username":  username,
			"email":     email,
			"full_name": strings.TrimSpace(in.FullName),
		}
		if in.NewPassword != "" {
			if !s.checkPassword(current, in.CurrentPassword) {
				return domain.Invalid("current_password", "Current password is incorrect.")
			}
			hash, err := s.hashPassword(in.NewPassword)
			if err != nil {
				return err
			}
			changes["password_hash"] = hash
		}

		record, err := s.users.Update(ctx, interfaces.StringID(current.ID), changes)
		if err != nil {
			return domain.FromStorage("update profile", err)
		}
		updated = entities.UserFromRecord(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMutation(ctx, "user", "profile")
	return updated, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*entities.User, error) {
	var user *entities.User
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		u, err := s.getUser(ctx, id)
		user = u
		return err
	})
	return user, err
}

func (s *Service) getUser(ctx context.Context, id string) (*entities.User, error) {
	record, err := s.users.GetByID(ctx, interfaces.StringID(id))
	if err != nil {
		return nil, domain.FromStorage("get user", err)
	}
	return entities.UserFromRecord(record), nil
}

// ListUsers returns every user, newest first
func (s *Service) ListUsers(ctx context.Context) ([]*entities.User, error) {
	return s.listUsers(ctx, nil)
}

// RecentUsers returns the n most recently created users
func (s *Service) RecentUsers(ctx context.Context, n int) ([]*entities.User, error) {
	return s.listUsers(ctx, &n)
}

func (s *Service) listUsers(ctx context.Context, limit *int) ([]*entities.User, error) {
	var users []*entities.User
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		page, err := s.users.FindMany(ctx, &interfaces.Query{
			OrderBy: []interfaces.OrderBy{
				{Field: "created_at", Direction: "desc"},
				{Field: "username", Direction: "asc"},
			},
			Limit: limit,
		})
		if err != nil {
			return domain.FromStorage("list users", err)
		}
		users = make([]*entities.User, 0, len(page.Data))
		for _, r := range page.Data {
			users = append(users, entities.UserFromRecord(r))
		}
		return nil
	})
	return users, err
}

func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		var err error
		n, err = s.users.Count(ctx, nil)
		return domain.FromStorage("count users", err)
	})
	return n, err
}

func (s *Service) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		var err error
		n, err = s.countAdmins(ctx)
		return err
	})
	return n, err
}

func (s *Service) countAdmins(ctx context.Context) (int64, error) {
	n, err := s.users.Count(ctx, &interfaces.Query{
		Where: interfaces.Where(map[string]interface{}{"role": entities.RoleAdmin}),
	})
	if err != nil {
		return 0, domain.FromStorage("count admins", err)
	}
	return n, nil
}

// EnsureAdmin creates the bootstrap admin account when no user with that
// username exists. It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (*entities.User, bool, error) {
	in := UserInput{Username: username, Email: email, FullName: "Administrator", Role: entities.RoleAdmin}
	in.normalize()
	if err := validateIdentity(in.Username, in.Email); err != nil {
		return nil, false, err
	}
	if err := validPassword(password); err != nil {
		return nil, false, err
	}

	var (
		user    *entities.User
		created bool
	)
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		existing, err := s.findBy(ctx, "username", in.Username)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := s.checkUnique(ctx, in.Username, in.Email, ""); err != nil {
			return err
		}
		hash, err := s.hashPassword(password)
		if err != nil {
			return err
		}
		admin := &entities.User{
			Username:     in.Username,
			Email:        in.Email,
			FullName:     in.FullName,
			Role:         entities.RoleAdmin,
			PasswordHash: hash,
		}
		record, err := s.users.Create(ctx, admin.Record())
		if err != nil {
			return domain.FromStorage("create admin", err)
		}
		user = entities.UserFromRecord(record)
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Infow("Admin user created", "username", user.Username)
	}
	return user, created, nil
}
