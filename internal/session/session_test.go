package session

import (
	"testing"
	"time"
)

// Tests force the file-based store so they never touch the OS keyring.
func useFileStore(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CI", "true")
	fileBasedStorageCache = nil
	t.Cleanup(func() { fileBasedStorageCache = nil })
}

func TestSaveLoadDelete(t *testing.T) {
	useFileStore(t)

	data := &Data{
		Name:    "test",
		BaseURL: "https://urlebird.com",
		Cookies: []Cookie{
			{Name: "consent", Value: "yes", Domain: "urlebird.com", Path: "/", Expires: float64(time.Now().Add(time.Hour).Unix())},
		},
		CreatedAt: time.Now(),
	}
	if err := Save(data); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load("test")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.BaseURL != "https://urlebird.com" {
		t.Errorf("BaseURL = %q", loaded.BaseURL)
	}
	if len(loaded.Cookies) != 1 || loaded.Cookies[0].Name != "consent" {
		t.Errorf("Cookies = %+v", loaded.Cookies)
	}

	if err := Delete("test"); err != nil {
		t.Fatal(err)
	}
	if _, err := Load("test"); err == nil {
		t.Error("loaded a deleted session")
	}
}

func TestLoadMissingSession(t *testing.T) {
	useFileStore(t)
	if _, err := Load("nope"); err == nil {
		t.Fatal("want error for missing session")
	}
}

func TestHTTPCookies(t *testing.T) {
	data := &Data{Cookies: []Cookie{
		{Name: "a", Value: "1", Domain: "urlebird.com", Path: "/", Secure: true},
		{Name: "b", Value: "2"},
	}}
	cookies := data.HTTPCookies()
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies", len(cookies))
	}
	if cookies[0].Name != "a" || cookies[0].Value != "1" || !cookies[0].Secure {
		t.Errorf("cookie = %+v", cookies[0])
	}
}
