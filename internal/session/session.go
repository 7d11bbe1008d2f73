// internal/session/session.go
package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for keyring storage
	KeyringService = "tokbird"
	// FallbackDir is the directory for file-based session storage (when keyring fails)
	FallbackDir = ".tokbird/sessions"
	// DefaultName is the session used when the caller doesn't pick one
	DefaultName = "default"
)

// useFileBasedStorage checks if we should use file-based storage.
// This is a fallback for environments where keyring isn't available (CI, containers).
var fileBasedStorageCache *bool

func useFileBasedStorage() bool {
	if fileBasedStorageCache != nil {
		return *fileBasedStorageCache
	}

	if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
		result := true
		fileBasedStorageCache = &result
		return true
	}

	testKey := "_test_keyring_access_"
	err := keyring.Set(KeyringService, testKey, "test")
	result := (err != nil)
	fileBasedStorageCache = &result

	if !result {
		keyring.Delete(KeyringService, testKey)
	}

	return result
}

func sessionDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, FallbackDir)
	return dir, os.MkdirAll(dir, 0700)
}

func sessionPath(name string) (string, error) {
	dir, err := sessionDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}

// Data holds the site cookies gathered on a previous run.
//
// The aggregator gates its listings behind a consent popup; once the
// browser fetcher has dismissed it we persist the resulting cookies and
// inject them on later runs so plain HTTP fetches skip the popup too.
type Data struct {
	Name      string    `json:"name"`
	BaseURL   string    `json:"base_url"`
	Cookies   []Cookie  `json:"cookies"`
	CreatedAt time.Time `json:"created_at"`
}

// Cookie represents a browser cookie
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Save persists a session to the OS keyring or the fallback file store
func Save(data *Data) error {
	if data.Name == "" {
		data.Name = DefaultName
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if useFileBasedStorage() {
		path, err := sessionPath(data.Name)
		if err != nil {
			return fmt.Errorf("failed to get session path: %w", err)
		}
		if err := os.WriteFile(path, raw, 0600); err != nil {
			return fmt.Errorf("failed to save session file: %w", err)
		}
		return nil
	}

	if err := keyring.Set(KeyringService, data.Name, string(raw)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return nil
}

// Load retrieves a session from the OS keyring or the fallback file store
func Load(name string) (*Data, error) {
	if name == "" {
		name = DefaultName
	}

	var raw string
	if useFileBasedStorage() {
		path, err := sessionPath(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get session path: %w", err)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("session %q not found: %w", name, err)
		}
		raw = string(b)
	} else {
		var err error
		raw, err = keyring.Get(KeyringService, name)
		if err != nil {
			return nil, fmt.Errorf("session %q not found: %w", name, err)
		}
	}

	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &data, nil
}

// Delete removes a persisted session
func Delete(name string) error {
	if name == "" {
		name = DefaultName
	}
	if useFileBasedStorage() {
		path, err := sessionPath(name)
		if err != nil {
			return err
		}
		return os.Remove(path)
	}
	return keyring.Delete(KeyringService, name)
}

// HTTPCookies converts the stored cookies for use with net/http clients
func (d *Data) HTTPCookies() []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(d.Cookies))
	for _, c := range d.Cookies {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		cookies = append(cookies, hc)
	}
	return cookies
}
