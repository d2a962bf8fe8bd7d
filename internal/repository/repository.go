// Package repository declares the persistence contracts consumed by the
// service layer. Implementations live in subpackages (sqlite).
package repository

import (
	"context"

	"github.com/tdhoang/authcore/internal/model"
)

// UserRepository is the credential store adapter.
//
// Lookup methods return the user with the role→group→permission graph
// populated (Role non-nil when the user has one) so sign-in can aggregate
// permissions without a second round trip. Not-found is reported as an
// apperror.ErrNotFound — never a nil, nil pair.
//
// The identifier rules come in two explicit variants instead of one method
// with an optional filter: when the caller holds a password, login type is
// irrelevant (password presence is sufficient proof of intent); without a
// password the recorded login type must match.
type UserRepository interface {
	// FindByIdentifier matches identifier against name OR email OR phone,
	// regardless of login type.
	FindByIdentifier(ctx context.Context, identifier string) (*model.User, error)

	// FindByIdentifierAndType is FindByIdentifier with an additional
	// login-type equality filter.
	FindByIdentifierAndType(ctx context.Context, identifier string, lt model.LoginType) (*model.User, error)

	// FindByEmailAndType looks up a user by email column and login type.
	// OAuth linking uses it to find an already-linked account.
	FindByEmailAndType(ctx context.Context, email string, lt model.LoginType) (*model.User, error)

	// FindByAnyOf returns any user whose name, email, or phone equals one
	// of the given non-empty values (empty values never match). Sign-up uses
	// it as its uniqueness probe; forgot-password as its email-or-phone lookup.
	FindByAnyOf(ctx context.Context, name, email, phone string) (*model.User, error)

	// GetByID fetches a user by internal ID, without the role graph.
	GetByID(ctx context.Context, id string) (*model.User, error)

	// Create inserts a new user, assigning ID and timestamps in place.
	Create(ctx context.Context, user *model.User) error

	// UpdatePassword replaces the stored password hash for userID.
	UpdatePassword(ctx context.Context, userID, newHash string) error
}

// WebpageRepository is the read-only redirect-target store.
type WebpageRepository interface {
	// GetByKey resolves a webpage key to its record.
	GetByKey(ctx context.Context, key string) (*model.Webpage, error)
}
