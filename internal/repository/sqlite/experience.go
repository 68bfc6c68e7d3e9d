package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/voyage/internal/apperror"
	"github.com/sakif/voyage/internal/model"
	"github.com/sakif/voyage/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` assigns a typed nil to the interface. If *DB stops
// implementing repository.ExperienceRepository, the compiler errors here
// instead of somewhere far away at a call site.
var _ repository.ExperienceRepository = (*DB)(nil)

// expColumns is the SELECT list shared by every experience read. The LEFT JOIN
// on users means the author columns come back NULL for a dangling author —
// they're scanned through sql.Null* types in scanExperience.
const expColumns = `
	e.id, e.author_id, e.title, e.caption, e.text_body, e.photo,
	e.experience_type, e.country, e.city, e.longitude, e.latitude, e.created_at,
	u.id, u.email, u.username, u.bio, u.member_since, u.user_image`

const expFrom = `
	FROM experiences e
	LEFT JOIN users u ON u.id = e.author_id`

// querier abstracts *sql.DB and *sql.Tx so the join loaders can run either
// standalone or inside a snapshot transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Create inserts a new experience and its album rows in one transaction.
//
// POINTER RECEIVER (*model.Experience):
// We take a pointer so the caller's struct comes back with the generated ID
// and CreatedAt filled in — the stored record is what gets returned to the
// client, so it must be complete.
func (db *DB) Create(ctx context.Context, exp *model.Experience) error {
	exp.ID = xid.New().String()
	exp.CreatedAt = time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning create tx: %w", err)
	}
	// Rollback is a no-op after a successful Commit — safe to always defer.
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO experiences
			(id, author_id, title, caption, text_body, photo,
			 experience_type, country, city, longitude, latitude, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exp.ID,
		exp.AuthorID,
		exp.Title,
		exp.Caption,
		exp.TextBody,
		exp.Photo,
		string(exp.ExperienceType),
		exp.Location.Country,
		exp.Location.City,
		exp.Location.Longitude,
		exp.Location.Latitude,
		exp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting experience: %w", err)
	}

	// Album URLs keep their upload order via the position column.
	for i, url := range exp.PhotoAlbum {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO experience_photos (experience_id, position, url) VALUES (?, ?, ?)`,
			exp.ID, i, url,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting album photo %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing create: %w", err)
	}
	return nil
}

// GetByID retrieves a single experience fully joined: author, album,
// bookmarkers, and comments.
//
// WHY A READ-ONLY TRANSACTION?
// Resolving one experience takes four queries (row, album, bookmarkers,
// comments). Without a transaction, a cascade delete could land between two
// of them and we'd hand back an experience whose comments half-vanished.
// Inside a transaction, SQLite gives us one consistent snapshot: the
// experience is observed fully present or fully absent, never in between.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Experience, error) {
	tx, err := db.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning read tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT`+expColumns+expFrom+` WHERE e.id = ?`, id)
	exp, err := scanExperience(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("experience", id)
		}
		return nil, fmt.Errorf("sqlite: getting experience %s: %w", id, err)
	}

	if err := resolveRelations(ctx, tx, exp); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing read: %w", err)
	}
	return exp, nil
}

// ListAll returns every experience fully joined, in store-native order
// (insertion order — xid IDs sort by creation time).
func (db *DB) ListAll(ctx context.Context) ([]model.Experience, error) {
	return db.listWhere(ctx, "", nil)
}

// ListByType filters on the category column, exact match.
func (db *DB) ListByType(ctx context.Context, t model.ExperienceType) ([]model.Experience, error) {
	return db.listWhere(ctx, `WHERE e.experience_type = ?`, []any{string(t)})
}

// ListByCountry filters on location country, exact and case-sensitive.
func (db *DB) ListByCountry(ctx context.Context, country string) ([]model.Experience, error) {
	return db.listWhere(ctx, `WHERE e.country = ?`, []any{country})
}

// ListByCity filters on country AND city — both must match exactly.
func (db *DB) ListByCity(ctx context.Context, country, city string) ([]model.Experience, error) {
	return db.listWhere(ctx, `WHERE e.country = ? AND e.city = ?`, []any{country, city})
}

// listWhere runs the shared joined SELECT with an optional WHERE clause, then
// resolves relations for each row — all inside one snapshot transaction so a
// concurrent cascade delete can't produce a half-resolved record.
func (db *DB) listWhere(ctx context.Context, where string, args []any) ([]model.Experience, error) {
	tx, err := db.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning read tx: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT` + expColumns + expFrom
	if where != "" {
		query += " " + where
	}
	query += ` ORDER BY e.created_at, e.id`

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing experiences: %w", err)
	}
	defer rows.Close()

	experiences := []model.Experience{}
	for rows.Next() {
		exp, err := scanExperience(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning experience row: %w", err)
		}
		experiences = append(experiences, *exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating experiences: %w", err)
	}

	// Resolve relations after the row loop: sql.Rows holds the connection,
	// and issuing new queries on the same tx while iterating would deadlock
	// a single-connection setup.
	for i := range experiences {
		if err := resolveRelations(ctx, tx, &experiences[i]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing read: %w", err)
	}
	return experiences, nil
}

// Delete removes an experience and everything that hangs off it — comments,
// album rows, bookmark entries — in ONE transaction.
//
// CASCADE ATOMICITY:
// This is the invariant the whole engagement model leans on: no reader may
// ever observe the experience gone while a stale comment for it is still
// retrievable. The transaction commits all four deletes as a unit; combined
// with the snapshot reads above, intermediate states are unobservable.
func (db *DB) Delete(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete tx: %w", err)
	}
	defer tx.Rollback()

	// The dependent rows would also fall to ON DELETE CASCADE, but deleting
	// them explicitly keeps the cascade visible in code and independent of
	// whether the foreign_keys pragma survived a connection reset.
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE experience_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting comments for experience %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bookmarks WHERE experience_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting bookmarks for experience %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM experience_photos WHERE experience_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting album for experience %s: %w", id, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM experiences WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting experience %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("experience", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete: %w", err)
	}
	return nil
}

// ToggleBookmark flips bookmark-set membership for (userID, experienceID).
//
// IDEMPOTENT TOGGLE, NOT AN APPEND LOG:
// Delete-first makes the toggle self-describing: if the DELETE removed a row
// the user had it bookmarked and now doesn't; if it removed nothing we INSERT.
// Running inside a transaction means a raced double-toggle serializes into
// "off then on" (or vice versa) — the composite primary key guarantees a
// duplicate pair can never exist either way.
func (db *DB) ToggleBookmark(ctx context.Context, userID, experienceID string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning bookmark tx: %w", err)
	}
	defer tx.Rollback()

	// The experience must exist — bookmarking a ghost is a NotFound, and the
	// check shares the transaction so a concurrent delete can't slip between
	// the check and the insert.
	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM experiences WHERE id = ?`, experienceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking experience %s: %w", experienceID, err)
	}
	if exists == 0 {
		return false, apperror.NotFound("experience", experienceID)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE user_id = ? AND experience_id = ?`,
		userID, experienceID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing bookmark: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	bookmarked := false
	if removed == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO bookmarks (user_id, experience_id, created_at) VALUES (?, ?, ?)`,
			userID, experienceID, time.Now(),
		)
		if err != nil {
			return false, fmt.Errorf("sqlite: adding bookmark: %w", err)
		}
		bookmarked = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing bookmark toggle: %w", err)
	}
	return bookmarked, nil
}

// scanner matches both *sql.Row and *sql.Rows so one scan function serves
// single-row and multi-row reads.
type scanner interface {
	Scan(dest ...any) error
}

// scanExperience reads the shared expColumns SELECT list into a model.
// The author columns are nullable because of the LEFT JOIN — when the
// account is gone, Author stays nil and the post survives as an orphan.
func scanExperience(s scanner) (*model.Experience, error) {
	var (
		exp         model.Experience
		expType     string
		authorID    sql.NullString
		authorEmail sql.NullString
		authorName  sql.NullString
		authorBio   sql.NullString
		authorSince sql.NullTime
		authorImage sql.NullString
	)

	err := s.Scan(
		&exp.ID, &exp.AuthorID, &exp.Title, &exp.Caption, &exp.TextBody, &exp.Photo,
		&expType, &exp.Location.Country, &exp.Location.City,
		&exp.Location.Longitude, &exp.Location.Latitude, &exp.CreatedAt,
		&authorID, &authorEmail, &authorName, &authorBio, &authorSince, &authorImage,
	)
	if err != nil {
		return nil, err
	}

	exp.ExperienceType = model.ExperienceType(expType)

	if authorID.Valid {
		exp.Author = &model.User{
			ID:          authorID.String,
			Email:       authorEmail.String,
			Username:    authorName.String,
			Bio:         authorBio.String,
			MemberSince: authorSince.Time,
			UserImage:   authorImage.String,
		}
	}

	return &exp, nil
}

// resolveRelations fills in the album, bookmarker, and comment collections
// for an already-scanned experience, using the caller's transaction.
func resolveRelations(ctx context.Context, q querier, exp *model.Experience) error {
	album, err := loadAlbum(ctx, q, exp.ID)
	if err != nil {
		return err
	}
	exp.PhotoAlbum = album

	bookmarkers, err := loadBookmarkers(ctx, q, exp.ID)
	if err != nil {
		return err
	}
	exp.BookmarkedBy = bookmarkers

	comments, err := loadComments(ctx, q, exp.ID)
	if err != nil {
		return err
	}
	exp.Comments = comments

	return nil
}

func loadAlbum(ctx context.Context, q querier, experienceID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT url FROM experience_photos WHERE experience_id = ? ORDER BY position`,
		experienceID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading album for %s: %w", experienceID, err)
	}
	defer rows.Close()

	album := []string{}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("sqlite: scanning album row: %w", err)
		}
		album = append(album, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating album: %w", err)
	}
	return album, nil
}

func loadBookmarkers(ctx context.Context, q querier, experienceID string) ([]model.User, error) {
	// INNER JOIN here (not LEFT): a bookmark whose user account is gone has
	// nothing useful to show, so it simply drops out of the bookmarker list.
	rows, err := q.QueryContext(ctx,
		`SELECT u.id, u.email, u.username, u.bio, u.member_since, u.user_image
		 FROM bookmarks b
		 JOIN users u ON u.id = b.user_id
		 WHERE b.experience_id = ?
		 ORDER BY b.created_at`,
		experienceID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading bookmarkers for %s: %w", experienceID, err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.Bio, &u.MemberSince, &u.UserImage); err != nil {
			return nil, fmt.Errorf("sqlite: scanning bookmarker row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating bookmarkers: %w", err)
	}
	return users, nil
}

func loadComments(ctx context.Context, q querier, experienceID string) ([]model.Comment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+commentColumns+commentFrom+`
		 WHERE c.experience_id = ?
		 ORDER BY c.created_at, c.id`,
		experienceID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading comments for %s: %w", experienceID, err)
	}
	defer rows.Close()

	return collectComments(rows)
}
