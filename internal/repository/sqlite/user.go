package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/voyage/internal/apperror"
	"github.com/sakif/voyage/internal/model"
	"github.com/sakif/voyage/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new account from the email+password registration flow.
// Email is the unique login identifier; a duplicate registration surfaces as
// Conflict so the handler can return 409 instead of a bare 500.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.MemberSince = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, username, bio, member_since, user_image, password_hash, github_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Username,
		user.Bio,
		user.MemberSince,
		user.UserImage,
		user.PasswordHash,
		user.GitHubID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by their unique email address.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

func (db *DB) getUser(ctx context.Context, where string, arg string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, username, bio, member_since, user_image, password_hash, github_id
		 FROM users `+where,
		arg,
	).Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.Bio,
		&u.MemberSince,
		&u.UserImage,
		&u.PasswordHash,
		&u.GitHubID,
	)
	if err != nil {
		// sql.ErrNoRows is a sentinel — "no matching row" is a normal outcome,
		// translated to the domain's NotFound instead of leaking database/sql.
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", arg)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", arg, err)
	}

	return &u, nil
}

// UpsertGitHub inserts, links, or refreshes a user based on their GitHub ID.
//
// First GitHub sign-in → INSERT a new account; later sign-ins → UPDATE the
// profile fields in case they changed on GitHub, KEEPING the existing internal
// ID. When the GitHub email already belongs to a password account, the GitHub
// identity is LINKED onto that account instead of failing on the email index —
// same person, same internal ID, either credential works from then on.
func (db *DB) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return fmt.Errorf("sqlite: upserting user: github id is required")
	}

	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, *user.GitHubID,
	).Scan(&existingID)

	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", *user.GitHubID, err)
	}

	if existingID != "" {
		user.ID = existingID
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET username = ?, email = ?, user_image = ? WHERE id = ?`,
			user.Username,
			user.Email,
			user.UserImage,
			user.ID,
		)
		if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			// GitHub now reports an address another account owns. Keep the
			// stored email and refresh the rest — the login still works.
			_, err = db.conn.ExecContext(ctx,
				`UPDATE users SET username = ?, user_image = ? WHERE id = ?`,
				user.Username,
				user.UserImage,
				user.ID,
			)
		}
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	// Never seen this GitHub ID. A password account may already own the same
	// email; attach the GitHub identity to it rather than tripping the index.
	if user.Email != "" {
		var linkedID string
		err = db.conn.QueryRowContext(ctx,
			`SELECT id FROM users WHERE email = ?`, user.Email,
		).Scan(&linkedID)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("sqlite: looking up user by email: %w", err)
		}
		if linkedID != "" {
			user.ID = linkedID
			_, err = db.conn.ExecContext(ctx,
				`UPDATE users SET github_id = ?, user_image = ? WHERE id = ?`,
				user.GitHubID,
				user.UserImage,
				user.ID,
			)
			if err != nil {
				return fmt.Errorf("sqlite: linking github identity to user %s: %w", user.ID, err)
			}
			return nil
		}
	}

	user.ID = xid.New().String()
	user.MemberSince = time.Now()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, username, bio, member_since, user_image, password_hash, github_id)
		 VALUES (?, ?, ?, ?, ?, ?, '', ?)`,
		user.ID,
		user.Email,
		user.Username,
		user.Bio,
		user.MemberSince,
		user.UserImage,
		user.GitHubID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (githubID=%d): %w", *user.GitHubID, err)
	}

	return nil
}
