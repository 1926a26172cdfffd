package memory

import (
	"context"

	"expensetracker/models"
	"expensetracker/pkg/account"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return account.ErrUserExists
		}
	}
	s.nextUser++
	now := s.now()
	u.ID = s.nextUser
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	return nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, account.ErrUserNotFound
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, account.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) CreateRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextToken++
	now := s.now()
	rt.ID = s.nextToken
	rt.CreatedAt, rt.UpdatedAt = now, now
	s.tokens[rt.ID] = *rt
	return nil
}

func (s *Store) RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rt := range s.tokens {
		if rt.TokenHash == hash {
			return &rt, nil
		}
	}
	return nil, account.ErrTokenNotFound
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.tokens[id]
	if !ok || rt.Revoked {
		return account.ErrTokenNotFound
	}
	rt.Revoked = true
	rt.UpdatedAt = s.now()
	s.tokens[id] = rt
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID uint, hash []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return account.ErrUserNotFound
	}
	u.HashedPassword = append([]byte(nil), hash...)
	u.UpdatedAt = s.now()
	s.users[userID] = u
	return nil
}

func (s *Store) RevokeUserRefreshTokens(ctx context.Context, userID uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, rt := range s.tokens {
		if rt.UserID == userID && !rt.Revoked {
			rt.Revoked = true
			rt.UpdatedAt = now
			s.tokens[id] = rt
		}
	}
	return nil
}
