package postgres

import (
	"context"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
)

// UpsertUser inserts or refreshes the profile of an authenticated user.
// CreatedAt and UpdatedAt of the argument are used as the write time.
func (s *Store) UpsertUser(ctx context.Context, u domain.User) (domain.User, error) {
	var out domain.User
	err := s.db.QueryRowContext(ctx, queryUpsertUser,
		u.ID,
		u.Email,
		u.FirstName,
		u.LastName,
		u.ProfileImageURL,
		u.UpdatedAt,
	).Scan(
		&out.ID,
		&out.Email,
		&out.FirstName,
		&out.LastName,
		&out.ProfileImageURL,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, queryGetUser, id).Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.ProfileImageURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, notFound(err)
	}
	return u, nil
}
