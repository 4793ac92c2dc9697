package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kozaktomas/securebase/internal/auth"
	"github.com/kozaktomas/securebase/internal/config"
	"github.com/kozaktomas/securebase/internal/database"
	"github.com/kozaktomas/securebase/internal/facematch"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

const userColumns = `id, email, name, COALESCE(password_hash, ''), face_descriptor, face_registered, created_at, updated_at`

// pqUniqueViolation is the SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

// UserRepository provides PostgreSQL-backed user storage and face matching.
type UserRepository struct {
	pool *Pool
	mode string

	index        *database.DescriptorIndex
	indexEnabled bool
	indexMu      sync.RWMutex
}

// NewUserRepository creates a user repository using the given face match mode.
// Unknown modes behave like config.MatchModeScan.
func NewUserRepository(pool *Pool, mode string) *UserRepository {
	return &UserRepository{
		pool:  pool,
		mode:  mode,
		index: database.NewDescriptorIndex(),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*database.StoredUser, error) {
	var u database.StoredUser
	var vec *pgvector.Vector
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &vec, &u.FaceRegistered, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if vec != nil {
		u.FaceDescriptor = facematch.Descriptor(vec.Slice())
	}
	return &u, nil
}

func descriptorArg(d facematch.Descriptor) any {
	if d == nil {
		return nil
	}
	return pgvector.NewVector([]float32(d))
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*database.StoredUser, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, database.ErrNotFound
	}
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*database.StoredUser, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// List returns users matching filter, oldest first.
func (r *UserRepository) List(ctx context.Context, filter database.UserFilter) ([]database.StoredUser, error) {
	var where []string
	var args []any

	if filter.FaceOnly {
		where = append(where, "face_registered")
	}
	if key := auth.SearchKey(filter.Search); key != "" {
		args = append(args, "%"+escapeLike(key)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(LOWER(unaccent(name)) LIKE $%d OR LOWER(email) LIKE $%d)", n, n))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = database.DefaultListLimit
	}
	offset := max(filter.Offset, 0)

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []database.StoredUser
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// Count returns the total number of users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CountFaces returns the number of users with a registered face.
func (r *UserRepository) CountFaces(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE face_registered`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return n, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *database.StoredUser) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.FaceDescriptor != nil && !user.FaceDescriptor.Valid() {
		return facematch.ErrInvalidDescriptor
	}
	user.FaceRegistered = user.FaceDescriptor != nil

	query := `
		INSERT INTO users (id, email, name, password_hash, face_descriptor, face_registered)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash,
		descriptorArg(user.FaceDescriptor), user.FaceRegistered,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return database.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	if user.FaceRegistered {
		r.indexAdd(database.StoredFace{UserID: user.ID, Descriptor: user.FaceDescriptor})
	}
	return nil
}

// SetFace stores a descriptor for the user.
func (r *UserRepository) SetFace(ctx context.Context, id string, descriptor facematch.Descriptor) (*database.StoredUser, error) {
	if !descriptor.Valid() {
		return nil, facematch.ErrInvalidDescriptor
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, database.ErrNotFound
	}

	query := `
		UPDATE users SET face_descriptor = $2, face_registered = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, query, id, pgvector.NewVector([]float32(descriptor))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set face: %w", err)
	}

	r.indexAdd(database.StoredFace{UserID: u.ID, Descriptor: u.FaceDescriptor})
	return u, nil
}

// ClearFace removes the user's descriptor.
func (r *UserRepository) ClearFace(ctx context.Context, id string) (*database.StoredUser, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, database.ErrNotFound
	}

	query := `
		UPDATE users SET face_descriptor = NULL, face_registered = FALSE, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("clear face: %w", err)
	}

	r.indexDelete(id)
	return u, nil
}

// Delete removes a user. Their sessions are removed by the foreign key cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return database.ErrNotFound
	}
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}

	r.indexDelete(id)
	return nil
}

// ListFaces returns every registered descriptor.
func (r *UserRepository) ListFaces(ctx context.Context) ([]database.StoredFace, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, face_descriptor FROM users WHERE face_registered ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list faces: %w", err)
	}
	defer rows.Close()

	var faces []database.StoredFace
	for rows.Next() {
		var f database.StoredFace
		var vec pgvector.Vector
		if err := rows.Scan(&f.UserID, &vec); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		f.Descriptor = facematch.Descriptor(vec.Slice())
		faces = append(faces, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

// BestFaceMatch returns the registered face nearest to query using the
// repository's match mode, or nil if no face is registered.
func (r *UserRepository) BestFaceMatch(ctx context.Context, query facematch.Descriptor, threshold float64) (*facematch.Match, error) {
	if len(query) != facematch.DescriptorDim {
		return nil, facematch.ErrDimensionMismatch
	}

	switch r.mode {
	case config.MatchModePgvector:
		return r.bestByPgvector(ctx, query, threshold)
	case config.MatchModeHNSW:
		if m, ok := r.bestByIndex(query, threshold); ok {
			return m, nil
		}
	}
	return r.bestByScan(ctx, query, threshold)
}

func (r *UserRepository) bestByScan(ctx context.Context, query facematch.Descriptor, threshold float64) (*facematch.Match, error) {
	faces, err := r.ListFaces(ctx)
	if err != nil {
		return nil, err
	}
	return bestOf(query, faces, threshold), nil
}

func (r *UserRepository) bestByPgvector(ctx context.Context, query facematch.Descriptor, threshold float64) (*facematch.Match, error) {
	sqlQuery := `
		SELECT id, face_descriptor FROM users
		WHERE face_registered
		ORDER BY face_descriptor <-> $1, id
		LIMIT 1
	`
	var f database.StoredFace
	var vec pgvector.Vector
	err := r.pool.QueryRow(ctx, sqlQuery, pgvector.NewVector([]float32(query))).Scan(&f.UserID, &vec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("nearest face: %w", err)
	}
	f.Descriptor = facematch.Descriptor(vec.Slice())

	// Recompute in float64 so the threshold comparison does not depend on pgvector's float32 arithmetic.
	return bestOf(query, []database.StoredFace{f}, threshold), nil
}

// bestByIndex returns false when the index is disabled, fails or yields no
// accepted match, in which case the caller falls back to a scan.
func (r *UserRepository) bestByIndex(query facematch.Descriptor, threshold float64) (*facematch.Match, bool) {
	if !r.IsIndexEnabled() {
		return nil, false
	}
	candidates, err := r.index.Search(query, database.HNSWSearchCandidates)
	if err != nil {
		zap.L().Warn("face index search failed, scanning all descriptors", zap.Error(err))
		return nil, false
	}
	if len(candidates) == 0 {
		return nil, false
	}
	m, ok := facematch.FindBestMatch(query, candidates, threshold)
	if !ok {
		return nil, false
	}
	return &m, true
}

func bestOf(query facematch.Descriptor, faces []database.StoredFace, threshold float64) *facematch.Match {
	candidates := make([]facematch.Candidate, len(faces))
	for i, f := range faces {
		candidates[i] = f.Candidate()
	}
	m, ok := facematch.FindBestMatch(query, candidates, threshold)
	if !ok {
		return nil
	}
	return &m
}

// EnableIndex builds the in-memory HNSW index and starts using it for matching.
func (r *UserRepository) EnableIndex(ctx context.Context) error {
	if err := r.RebuildIndex(ctx); err != nil {
		return err
	}
	r.indexMu.Lock()
	r.indexEnabled = true
	r.indexMu.Unlock()
	return nil
}

// RebuildIndex reloads every registered descriptor into the index.
func (r *UserRepository) RebuildIndex(ctx context.Context) error {
	faces, err := r.ListFaces(ctx)
	if err != nil {
		return fmt.Errorf("rebuild face index: %w", err)
	}
	r.index.Build(faces)
	zap.L().Info("face index rebuilt", zap.Int("faces", r.index.Count()))
	return nil
}

// IndexCount returns the number of descriptors in the index.
func (r *UserRepository) IndexCount() int {
	return r.index.Count()
}

// IsIndexEnabled returns whether the index is used for matching.
func (r *UserRepository) IsIndexEnabled() bool {
	r.indexMu.RLock()
	defer r.indexMu.RUnlock()
	return r.indexEnabled
}

func (r *UserRepository) indexAdd(f database.StoredFace) {
	if r.IsIndexEnabled() {
		r.index.Add(f)
	}
}

func (r *UserRepository) indexDelete(id string) {
	if r.IsIndexEnabled() {
		r.index.Delete(id)
	}
}

// Ensure UserRepository implements the interfaces
var (
	_ database.UserWriter     = (*UserRepository)(nil)
	_ database.FaceMatcher    = (*UserRepository)(nil)
	_ database.IndexRebuilder = (*UserRepository)(nil)
)
