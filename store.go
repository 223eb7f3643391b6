package blogit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const minUsernameLength = 3

// Store wraps a SQLite database and provides CRUD operations for blogs and
// users.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	// Pragmas go in the DSN so every pooled connection gets them, not just
	// the first one.
	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS users (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    username TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS blogs (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL,
    likes INTEGER NOT NULL DEFAULT 0,
    user_id TEXT REFERENCES users(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_blogs_user_id ON blogs(user_id);
`)
	return err
}

// parseID normalizes id to canonical UUID form.
func parseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", ErrMalformedID
	}
	return u.String(), nil
}

const blogColumns = `b.id, b.title, b.author, b.url, b.likes, u.id, u.username, u.name`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlog(row rowScanner) (Blog, error) {
	var b Blog
	var userID, username, name sql.NullString
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.URL, &b.Likes, &userID, &username, &name); err != nil {
		return Blog{}, err
	}
	if userID.Valid {
		b.User = &UserRef{ID: userID.String, Username: username.String, Name: name.String}
	}
	return b, nil
}

// ListBlogs returns every blog in insertion order with its owner populated.
func (s *Store) ListBlogs(ctx context.Context) ([]Blog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+blogColumns+` FROM blogs b LEFT JOIN users u ON u.id = b.user_id ORDER BY b.seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, b)
	}
	return blogs, rows.Err()
}

// CountBlogs returns the number of stored blogs.
func (s *Store) CountBlogs(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blogs`).Scan(&n)
	return n, err
}

// GetBlog returns a single blog by id.
func (s *Store) GetBlog(ctx context.Context, id string) (Blog, error) {
	id, err := parseID(id)
	if err != nil {
		return Blog{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+blogColumns+` FROM blogs b LEFT JOIN users u ON u.id = b.user_id WHERE b.id = ?`, id)
	return scanBlog(row)
}

func validateBlog(b Blog) error {
	verr := &ValidationError{Model: "Blog"}
	if b.Title == "" {
		verr.add("title", requiredMsg("title"))
	}
	if b.URL == "" {
		verr.add("url", requiredMsg("url"))
	}
	return verr.errOrNil()
}

// CreateBlog validates and inserts b under a fresh id. Likes below zero are
// stored as zero.
func (s *Store) CreateBlog(ctx context.Context, b Blog) (Blog, error) {
	if err := validateBlog(b); err != nil {
		return Blog{}, err
	}
	if b.Likes < 0 {
		b.Likes = 0
	}
	b.ID = uuid.NewString()
	var userID any
	if b.User != nil {
		userID = b.User.ID
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO blogs (id, title, author, url, likes, user_id) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Author, b.URL, b.Likes, userID)
	if err != nil {
		return Blog{}, fmt.Errorf("insert blog: %w", err)
	}
	return b, nil
}

// UpdateBlog applies the non-nil fields of upd to the blog with the given id
// and returns the stored result. Like a plain replace, it does not re-run the
// required-field checks.
func (s *Store) UpdateBlog(ctx context.Context, id string, upd BlogUpdate) (Blog, error) {
	id, err := parseID(id)
	if err != nil {
		return Blog{}, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE blogs SET
    title = COALESCE(?, title),
    author = COALESCE(?, author),
    url = COALESCE(?, url),
    likes = COALESCE(?, likes)
WHERE id = ?`, upd.Title, upd.Author, upd.URL, upd.Likes, id)
	if err != nil {
		return Blog{}, fmt.Errorf("update blog: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Blog{}, err
	}
	if n == 0 {
		return Blog{}, ErrNotFound
	}
	return s.GetBlog(ctx, id)
}

// DeleteBlog removes a blog by id. Deleting a blog that does not exist is
// not an error.
func (s *Store) DeleteBlog(ctx context.Context, id string) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM blogs WHERE id = ?`, id)
	return err
}

// ListUsers returns every user in insertion order with their blogs
// populated.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, name, password_hash FROM users ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	users := []User{}
	index := make(map[string]int)
	for rows.Next() {
		u := User{Blogs: []BlogRef{}}
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash); err != nil {
			rows.Close()
			return nil, err
		}
		index[u.ID] = len(users)
		users = append(users, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.eachBlogRef(ctx, `WHERE user_id IS NOT NULL`, nil, func(userID string, ref BlogRef) {
		if i, ok := index[userID]; ok {
			users[i].Blogs = append(users[i].Blogs, ref)
		}
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// eachBlogRef calls fn, in insertion order, for every owned blog matching
// the where clause.
func (s *Store) eachBlogRef(ctx context.Context, where string, args []any, fn func(userID string, ref BlogRef)) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, author, url, user_id FROM blogs `+where+` ORDER BY seq`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ref BlogRef
		var userID string
		if err := rows.Scan(&ref.ID, &ref.Title, &ref.Author, &ref.URL, &userID); err != nil {
			return err
		}
		fn(userID, ref)
	}
	return rows.Err()
}

func (s *Store) getUser(ctx context.Context, where string, arg string) (User, error) {
	u := User{Blogs: []BlogRef{}}
	err := s.db.QueryRowContext(ctx, `SELECT id, username, name, password_hash FROM users WHERE `+where+` = ?`, arg).
		Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash)
	if err != nil {
		return User{}, err
	}
	err = s.eachBlogRef(ctx, `WHERE user_id = ?`, []any{u.ID}, func(_ string, ref BlogRef) {
		u.Blogs = append(u.Blogs, ref)
	})
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	id, err := parseID(id)
	if err != nil {
		return User{}, err
	}
	return s.getUser(ctx, "id", id)
}

// GetUserByUsername returns a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.getUser(ctx, "username", username)
}

// CreateUser validates and inserts u under a fresh id. The username must be
// present, at least three characters long and not already taken.
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	verr := &ValidationError{Model: "User"}
	switch {
	case u.Username == "":
		verr.add("username", requiredMsg("username"))
	case len([]rune(u.Username)) < minUsernameLength:
		verr.add("username", minLengthMsg("username", u.Username, minUsernameLength))
	default:
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, u.Username).Scan(&exists)
		if err != nil {
			return User{}, err
		}
		if exists > 0 {
			verr.add("username", uniqueMsg("username", u.Username))
		}
	}
	if err := verr.errOrNil(); err != nil {
		return User{}, err
	}

	u.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, username, name, password_hash) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.Name, u.PasswordHash)
	if err != nil {
		// Lost a race with a concurrent insert of the same username.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			verr.add("username", uniqueMsg("username", u.Username))
			return User{}, verr
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	if u.Blogs == nil {
		u.Blogs = []BlogRef{}
	}
	return u, nil
}
