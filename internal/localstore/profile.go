package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jonathan/career-atoms/internal/types"
)

// GetProfile returns the profile singleton, or nil when it was never written.
func (s *Store) GetProfile(ctx context.Context) (*types.Profile, error) {
	var (
		p                                types.Profile
		email, phone, location, linkedin sql.NullString
		github, website, telegram        sql.NullString
		updatedAt                        string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT full_name, email, phone, location, linkedin, github, website, telegram, updated_at
		 FROM profile WHERE id = ?`, types.ProfileID,
	).Scan(&p.FullName, &email, &phone, &location, &linkedin, &github, &website, &telegram, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	p.Email = stringPtr(email)
	p.Phone = stringPtr(phone)
	p.Location = stringPtr(location)
	p.LinkedIn = stringPtr(linkedin)
	p.GitHub = stringPtr(github)
	p.Website = stringPtr(website)
	p.Telegram = stringPtr(telegram)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// UpdateProfile merges input over the stored profile, creating it if needed.
func (s *Store) UpdateProfile(ctx context.Context, input types.ProfileInput) (*types.Profile, error) {
	current, err := s.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = &types.Profile{}
	}

	updated := input.Apply(*current)
	if err := s.UpsertProfile(ctx, updated); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx)
}

// UpsertProfile writes the profile singleton.
func (s *Store) UpsertProfile(ctx context.Context, p types.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profile (id, full_name, email, phone, location, linkedin, github, website, telegram, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     full_name = excluded.full_name,
		     email = excluded.email,
		     phone = excluded.phone,
		     location = excluded.location,
		     linkedin = excluded.linkedin,
		     github = excluded.github,
		     website = excluded.website,
		     telegram = excluded.telegram,
		     updated_at = excluded.updated_at`,
		types.ProfileID, p.FullName,
		nullString(p.Email), nullString(p.Phone), nullString(p.Location), nullString(p.LinkedIn),
		nullString(p.GitHub), nullString(p.Website), nullString(p.Telegram),
		s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}
