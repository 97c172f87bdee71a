package postgres

import (
	"database/sql"
	"time"

	"github.com/baechuer/forgot-password/internal/domain"
)

type userRow struct {
	ID           string
	Email        string
	Name         sql.NullString
	PasswordHash string
	CreatedAt    time.Time
}

const userColumns = `id, email, name, password_hash, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (userRow, error) {
	var ur userRow
	err := row.Scan(&ur.ID, &ur.Email, &ur.Name, &ur.PasswordHash, &ur.CreatedAt)
	return ur, err
}

func (ur userRow) toDomain() domain.User {
	return domain.User{
		ID:           ur.ID,
		Email:        ur.Email,
		Name:         ur.Name.String,
		PasswordHash: ur.PasswordHash,
		CreatedAt:    ur.CreatedAt,
	}
}
