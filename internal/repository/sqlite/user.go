package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/tdhoang/authcore/internal/apperror"
	"github.com/tdhoang/authcore/internal/model"
	"github.com/tdhoang/authcore/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB implements repository.UserRepository.
type UserDB struct {
	conn *sql.DB
}

const userColumns = `id, name, email, phone, password_hash, login_type,
	first_name, last_name, image_url, date_of_birth, role_id, created_at, updated_at`

// FindByIdentifier matches identifier against name OR email OR phone,
// regardless of login type (the password-supplied path).
func (u *UserDB) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	return u.findOne(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE name = ? OR email = ? OR phone = ?
		 LIMIT 1`,
		identifier, identifier, identifier,
	)
}

// FindByIdentifierAndType is FindByIdentifier restricted to one login type
// (the password-less path).
func (u *UserDB) FindByIdentifierAndType(ctx context.Context, identifier string, lt model.LoginType) (*model.User, error) {
	return u.findOne(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE (name = ? OR email = ? OR phone = ?) AND login_type = ?
		 LIMIT 1`,
		identifier, identifier, identifier, string(lt),
	)
}

// FindByEmailAndType looks up an OAuth-linked account by the email column.
// GitHub linking passes the provider login here when the email is hidden.
func (u *UserDB) FindByEmailAndType(ctx context.Context, email string, lt model.LoginType) (*model.User, error) {
	return u.findOne(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE email = ? AND login_type = ?
		 LIMIT 1`,
		email, string(lt),
	)
}

// FindByAnyOf returns any user matching the given values on name, email,
// or phone. Empty values are skipped so they cannot match the empty default
// columns of unrelated rows.
func (u *UserDB) FindByAnyOf(ctx context.Context, name, email, phone string) (*model.User, error) {
	var (
		clauses []string
		args    []any
	)
	for col, val := range map[string]string{"name": name, "email": email, "phone": phone} {
		if val == "" {
			continue
		}
		clauses = append(clauses, col+" = ?")
		args = append(args, val)
	}
	if len(clauses) == 0 {
		return nil, apperror.NotFound("user", "")
	}

	return u.findOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+strings.Join(clauses, " OR ")+` LIMIT 1`,
		args...,
	)
}

// GetByID fetches a user by internal ID. The role graph is not loaded here;
// profile reads don't need it.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, _, err := u.scanOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// Create inserts a new user, assigning the ID and timestamps in place.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.LoginType == "" {
		user.LoginType = model.LoginAccount
	}

	var dob any
	if user.DateOfBirth != nil {
		dob = *user.DateOfBirth
	}
	var roleID any
	if user.Role != nil {
		roleID = user.Role.ID
	}

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, phone, password_hash, login_type,
			first_name, last_name, image_url, date_of_birth, role_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.Phone, user.PasswordHash, string(user.LoginType),
		user.FirstName, user.LastName, user.ImageURL, dob, roleID, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Name, err)
	}

	return nil
}

// UpdatePassword replaces the stored hash for userID.
func (u *UserDB) UpdatePassword(ctx context.Context, userID, newHash string) error {
	res, err := u.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", userID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking password update for user %s: %w", userID, err)
	}
	if affected == 0 {
		return apperror.NotFound("user", userID)
	}

	return nil
}

// findOne runs a single-row user query and attaches the role graph.
func (u *UserDB) findOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	user, roleID, err := u.scanOne(ctx, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", "")
		}
		return nil, fmt.Errorf("sqlite: looking up user: %w", err)
	}

	if roleID != "" {
		role, err := u.loadRole(ctx, roleID)
		if err != nil {
			return nil, err
		}
		user.Role = role
	}

	return user, nil
}

// scanOne scans a single user row. The role_id comes back separately so
// callers decide whether to load the graph.
func (u *UserDB) scanOne(ctx context.Context, query string, args ...any) (*model.User, string, error) {
	var (
		user   model.User
		lt     string
		dob    sql.NullTime
		roleID sql.NullString
	)

	err := u.conn.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Name, &user.Email, &user.Phone, &user.PasswordHash, &lt,
		&user.FirstName, &user.LastName, &user.ImageURL, &dob, &roleID,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, "", err
	}

	user.LoginType = model.LoginType(lt)
	if dob.Valid {
		t := dob.Time
		user.DateOfBirth = &t
	}

	return &user, roleID.String, nil
}

// loadRole fetches a role and its group→permission graph.
func (u *UserDB) loadRole(ctx context.Context, roleID string) (*model.Role, error) {
	var role model.Role
	err := u.conn.QueryRowContext(ctx,
		`SELECT id, name, is_all_permissions FROM roles WHERE id = ?`, roleID,
	).Scan(&role.ID, &role.Name, &role.IsAllPermissions)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("role", roleID)
		}
		return nil, fmt.Errorf("sqlite: loading role %s: %w", roleID, err)
	}

	// One joined query, rows ordered by group so assembly is a single pass.
	// Permission columns are NULL for groups that grant nothing.
	rows, err := u.conn.QueryContext(ctx,
		`SELECT g.id, g.name, p.id, p.name, p.key, p.router, p.description
		 FROM role_groups rg
		 JOIN groups g ON g.id = rg.group_id
		 LEFT JOIN group_permissions gp ON gp.group_id = g.id
		 LEFT JOIN permissions p ON p.id = gp.permission_id
		 WHERE rg.role_id = ?
		 ORDER BY g.id`,
		roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading groups for role %s: %w", roleID, err)
	}
	defer rows.Close()

	var current *model.Group
	for rows.Next() {
		var (
			groupID, groupName           string
			pID, pName, pKey, pRtr, pDsc sql.NullString
		)
		if err := rows.Scan(&groupID, &groupName, &pID, &pName, &pKey, &pRtr, &pDsc); err != nil {
			return nil, fmt.Errorf("sqlite: scanning role graph: %w", err)
		}

		if current == nil || current.ID != groupID {
			role.Groups = append(role.Groups, model.Group{ID: groupID, Name: groupName})
			current = &role.Groups[len(role.Groups)-1]
		}
		if pID.Valid {
			current.Permissions = append(current.Permissions, model.Permission{
				ID:          pID.String,
				Name:        pName.String,
				Key:         pKey.String,
				Router:      pRtr.String,
				Description: pDsc.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating role graph: %w", err)
	}

	return &role, nil
}
