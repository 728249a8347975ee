// Package uploads provides the volatile in-memory store for uploaded files.
//
// Uploads are the second tier of the session storage model: sessions and
// snapshots persist in SQLite, while file bytes live only here for the
// lifetime of the process. A Resource whose upload id no longer resolves is
// rendered without its download affordance, never as an error.
package uploads

import (
	"sync"

	"github.com/thrivelabs/thrive/internal/domain"
)

// Store keeps uploaded file records per user, keyed by upload id.
type Store struct {
	mu    sync.RWMutex
	files map[string]map[string]*domain.UploadedFile
}

// NewStore creates an empty upload store.
func NewStore() *Store {
	return &Store{
		files: make(map[string]map[string]*domain.UploadedFile),
	}
}

// Put stores a file record for a user. A record with the same id overwrites
// the previous one (same-second, same-filename collisions are accepted).
func (s *Store) Put(userID string, file *domain.UploadedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[userID]; !ok {
		s.files[userID] = make(map[string]*domain.UploadedFile)
	}
	s.files[userID][file.ID] = file
}

// Get returns the file record for a user and upload id, or nil when the id
// does not resolve.
func (s *Store) Get(userID, uploadID string) *domain.UploadedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if records, ok := s.files[userID]; ok {
		return records[uploadID]
	}
	return nil
}

// Delete removes a file record for a user.
func (s *Store) Delete(userID, uploadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if records, ok := s.files[userID]; ok {
		delete(records, uploadID)
		if len(records) == 0 {
			delete(s.files, userID)
		}
	}
}

// Count returns the number of stored records for a user.
func (s *Store) Count(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files[userID])
}
