package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"dkn/internal/model"
	"dkn/internal/repository"
)

// UserPostgres is a read-only PostgreSQL implementation of repository.UserRepository.
type UserPostgres struct {
	db *sql.DB
}

func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

const userGroupBy = `GROUP BY u.id, u.name, u.email, u.department, u.region, u.expertise, u.role`

// FindByID fetches a single user by ID.
func (r *UserPostgres) FindByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `
		SELECT id, name, email, department, region, expertise, role, is_reviewer
		FROM users
		WHERE id = $1
	`
	var u model.User
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Department,
		&u.Region,
		&u.Expertise,
		&u.Role,
		&u.IsReviewer,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// Leaderboard ranks every user, including those without documents.
func (r *UserPostgres) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	const q = `
		SELECT u.id, u.name, u.email, u.department, u.region, u.expertise, u.role,
		       COUNT(d.id) AS document_count,
		       COALESCE(SUM(d.download_count), 0) AS total_downloads
		FROM users u
		LEFT JOIN documents d ON u.id = d.uploader_id
		` + userGroupBy + `
		ORDER BY document_count DESC, total_downloads DESC, u.id ASC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]model.LeaderboardEntry, 0)
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(
			&e.ID,
			&e.Name,
			&e.Email,
			&e.Department,
			&e.Region,
			&e.Expertise,
			&e.Role,
			&e.DocumentCount,
			&e.TotalDownloads,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Experts lists users matching f with their document counts.
func (r *UserPostgres) Experts(ctx context.Context, f repository.ExpertFilter) ([]model.Expert, error) {
	var w whereBuilder
	w.eq("u.department", f.Department)
	w.eq("u.region", f.Region)
	w.contains(f.Expertise, "u.expertise")
	w.contains(f.Search, "u.name", "u.expertise")
	where, args := w.build()

	q := `
		SELECT u.id, u.name, u.email, u.department, u.region, u.expertise, u.role,
		       COUNT(d.id) AS document_count
		FROM users u
		LEFT JOIN documents d ON u.id = d.uploader_id` + where + `
		` + userGroupBy + `
		ORDER BY document_count DESC, u.id ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query experts: %w", err)
	}
	defer rows.Close()

	out := make([]model.Expert, 0)
	for rows.Next() {
		var e model.Expert
		if err := rows.Scan(
			&e.ID,
			&e.Name,
			&e.Email,
			&e.Department,
			&e.Region,
			&e.Expertise,
			&e.Role,
			&e.DocumentCount,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats computes a user's totals and rank in one round trip. Rank counts the
// uploaders with strictly more documents, so tied users share a rank.
func (r *UserPostgres) Stats(ctx context.Context, userID int64) (*model.UserStats, error) {
	const q = `
		WITH me AS (
			SELECT COUNT(*) AS doc_count, COALESCE(SUM(download_count), 0) AS total_downloads
			FROM documents
			WHERE uploader_id = $1
		), per_user AS (
			SELECT uploader_id, COUNT(*) AS doc_count
			FROM documents
			GROUP BY uploader_id
		)
		SELECT me.doc_count,
		       me.total_downloads,
		       1 + (SELECT COUNT(*) FROM per_user WHERE per_user.doc_count > me.doc_count) AS user_rank
		FROM me
	`
	var s model.UserStats
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&s.DocumentCount,
		&s.TotalDownloads,
		&s.Rank,
	); err != nil {
		return nil, fmt.Errorf("query user stats: %w", err)
	}
	return &s, nil
}

func (r *UserPostgres) Departments(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT department FROM users WHERE department IS NOT NULL ORDER BY department`)
}

func (r *UserPostgres) Regions(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT region FROM users WHERE region IS NOT NULL ORDER BY region`)
}

func (r *UserPostgres) distinct(ctx context.Context, q string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
