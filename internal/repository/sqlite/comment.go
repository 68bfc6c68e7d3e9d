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

// compile-time check that *DB implements repository.CommentRepository
var _ repository.CommentRepository = (*DB)(nil)

// commentColumns / commentFrom mirror the experience read: LEFT JOIN the
// author so a deleted account leaves the comment readable with a null author.
const commentColumns = `
	c.id, c.experience_id, c.author_id, c.body, c.created_at,
	u.id, u.email, u.username, u.bio, u.member_since, u.user_image`

const commentFrom = `
	FROM comments c
	LEFT JOIN users u ON u.id = c.author_id`

// CreateComment persists a comment against an existing experience.
//
// ATOMIC EXISTENCE CHECK:
// There is no separate "does the experience exist?" query. The INSERT itself
// carries the check: comments.experience_id REFERENCES experiences(id), so if
// a concurrent cascade delete has removed the experience, SQLite rejects the
// row with a FOREIGN KEY constraint error in the same atomic step. We
// translate that to NotFound — a comment can never land on a ghost.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, experience_id, author_id, body, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		comment.ID,
		comment.ExperienceID,
		comment.AuthorID,
		comment.Body,
		comment.CreatedAt,
	)
	if err != nil {
		// modernc.org/sqlite reports constraint failures as plain errors with
		// the SQLite message text; there's no typed error to errors.As into.
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return apperror.NotFound("experience", comment.ExperienceID)
		}
		return fmt.Errorf("sqlite: inserting comment: %w", err)
	}

	return nil
}

// ListComments returns every comment with its author resolved, oldest first.
func (db *DB) ListComments(ctx context.Context) ([]model.Comment, error) {
	return db.listComments(ctx, "", nil)
}

// ListCommentsByAuthor returns the comments written by one user.
func (db *DB) ListCommentsByAuthor(ctx context.Context, userID string) ([]model.Comment, error) {
	return db.listComments(ctx, `WHERE c.author_id = ?`, []any{userID})
}

// ListCommentsByExperience returns an experience's comments in creation order.
// After the experience's cascade delete this returns an empty slice — the
// comments went down with it, atomically.
func (db *DB) ListCommentsByExperience(ctx context.Context, experienceID string) ([]model.Comment, error) {
	return db.listComments(ctx, `WHERE c.experience_id = ?`, []any{experienceID})
}

func (db *DB) listComments(ctx context.Context, where string, args []any) ([]model.Comment, error) {
	query := `SELECT ` + commentColumns + commentFrom
	if where != "" {
		query += " " + where
	}
	query += ` ORDER BY c.created_at, c.id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments: %w", err)
	}
	defer rows.Close()

	return collectComments(rows)
}

// collectComments drains a comment result set produced from commentColumns.
func collectComments(rows *sql.Rows) ([]model.Comment, error) {
	comments := []model.Comment{}
	for rows.Next() {
		var (
			c           model.Comment
			authorID    sql.NullString
			authorEmail sql.NullString
			authorName  sql.NullString
			authorBio   sql.NullString
			authorSince sql.NullTime
			authorImage sql.NullString
		)
		err := rows.Scan(
			&c.ID, &c.ExperienceID, &c.AuthorID, &c.Body, &c.CreatedAt,
			&authorID, &authorEmail, &authorName, &authorBio, &authorSince, &authorImage,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		if authorID.Valid {
			c.Author = &model.User{
				ID:          authorID.String,
				Email:       authorEmail.String,
				Username:    authorName.String,
				Bio:         authorBio.String,
				MemberSince: authorSince.Time,
				UserImage:   authorImage.String,
			}
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}
