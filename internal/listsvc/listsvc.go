// Package listsvc implements C8's ListService: block/allow/watch list
// membership backed by memory, file, or postgres storage (spec §4.7).
package listsvc

import "context"

// Backend is the pluggable storage contract every list backend implements.
// contains is the hot path and must stay O(1) for memory/file (hash-set)
// and index-backed for postgres.
type Backend interface {
	Contains(ctx context.Context, listID, value string) (bool, error)
	Add(ctx context.Context, listID, value string) error
	Remove(ctx context.Context, listID, value string) error
	GetAll(ctx context.Context, listID string) ([]string, error)
	Close() error
}

// Service is the façade the engine and VM-adjacent collaborators call
// through; it just forwards to whichever Backend was configured.
type Service struct {
	backend Backend
}

func New(backend Backend) *Service {
	return &Service{backend: backend}
}

func (s *Service) Contains(ctx context.Context, listID, value string) (bool, error) {
	return s.backend.Contains(ctx, listID, value)
}

func (s *Service) Add(ctx context.Context, listID, value string) error {
	return s.backend.Add(ctx, listID, value)
}

func (s *Service) Remove(ctx context.Context, listID, value string) error {
	return s.backend.Remove(ctx, listID, value)
}

func (s *Service) GetAll(ctx context.Context, listID string) ([]string, error) {
	return s.backend.GetAll(ctx, listID)
}

func (s *Service) Close() error {
	return s.backend.Close()
}
