// Package credentials persists the operator's API key and bearer token.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/khanhnv2901/veribits-cli/internal/client"
	consts "github.com/khanhnv2901/veribits-cli/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/veribits-cli/internal/shared/errors"
	"github.com/khanhnv2901/veribits-cli/internal/shared/security"
)

// FileName is the credential file inside the data directory.
const FileName = "credentials.json"

// credentialsDTO is the on-disk form.
type credentialsDTO struct {
	APIKey    string `json:"api_key,omitempty"`
	Token     string `json:"token,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Record is a stored credential set.
type Record struct {
	client.Credentials
	UpdatedAt time.Time
}

// Store keeps credentials in a JSON file readable only by the owner.
type Store struct {
	filePath string
	mu       sync.RWMutex
}

// NewStore returns a store rooted at dataDir, creating the directory if needed.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	if err := os.MkdirAll(dataDir, consts.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	filePath, err := security.ResolveWithin(dataDir, FileName)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials path: %w", err)
	}
	return &Store{filePath: filePath}, nil
}

// Path returns the credential file location.
func (s *Store) Path() string {
	return s.filePath
}

// Load returns the stored record, or ErrCredentialsNotFound when nothing is saved.
func (s *Store) Load(ctx context.Context) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, sharedErrors.ErrCredentialsNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
	}

	var dto credentialsDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return Record{}, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}

	rec := Record{Credentials: client.Credentials{APIKey: dto.APIKey, Token: dto.Token}}
	if dto.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, dto.UpdatedAt); err == nil {
			rec.UpdatedAt = t
		}
	}
	if rec.Empty() {
		return rec, sharedErrors.ErrCredentialsNotFound
	}
	return rec, nil
}

// Credentials is Load without the metadata; a missing file yields empty
// credentials and no error.
func (s *Store) Credentials(ctx context.Context) (client.Credentials, error) {
	rec, err := s.Load(ctx)
	if errors.Is(err, sharedErrors.ErrCredentialsNotFound) {
		return client.Credentials{}, nil
	}
	return rec.Credentials, err
}

// Save merges creds over what is stored. Blank fields keep their old value.
func (s *Store) Save(ctx context.Context, creds client.Credentials) error {
	existing, err := s.Load(ctx)
	if err != nil && !errors.Is(err, sharedErrors.ErrCredentialsNotFound) {
		return err
	}
	merged := creds.Merge(existing.Credentials)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(credentialsDTO{
		APIKey:    merged.APIKey,
		Token:     merged.Token,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// Clear removes the credential file. Clearing an empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	return nil
}

func (s *Store) write(dto credentialsDTO) error {
	data, err := json.MarshalIndent(dto, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), ".credentials-*")
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(consts.SecretFilePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	return nil
}
