package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// cookieFile persists the jar's cookies for one origin.
type cookieFile struct {
	path      string
	url       *url.URL
	jar       http.CookieJar
	forgotten map[string]bool
}

func (f *cookieFile) load() error {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cookies: %w", err)
	}
	var stored []storedCookie
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("decode cookies %s: %w", f.path, err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	f.jar.SetCookies(f.url, cookies)
	return nil
}

func (f *cookieFile) save() error {
	cookies := f.jar.Cookies(f.url)
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		if f.forgotten[c.Name] {
			continue
		}
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	raw, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("write cookies: %w", err)
	}
	if err := os.WriteFile(f.path, raw, 0o600); err != nil {
		return fmt.Errorf("write cookies: %w", err)
	}
	return nil
}

// forget expires the named cookies in the jar and keeps them out of the file,
// whatever path the server scoped them to.
func (f *cookieFile) forget(names ...string) {
	if f.forgotten == nil {
		f.forgotten = make(map[string]bool, len(names))
	}
	expired := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		f.forgotten[name] = true
		expired = append(expired, &http.Cookie{Name: name, Path: "/", MaxAge: -1})
	}
	f.jar.SetCookies(f.url, expired)
}
