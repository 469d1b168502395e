package model

import (
	"context"
	"time"
)

// SessionStore persists session snapshots by id.
//
// Load returns (nil, nil) when the id is unknown. Update performs an atomic
// read-modify-write for one id; fn receives nil for an unknown id and the
// returned session is saved.
type SessionStore interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id string, fn func(*Session) (*Session, error)) (*Session, error)
	Prune(ctx context.Context, maxAge time.Duration) (int, error)
}
