package deps

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Auth edits the host auth.json used by composer to reach private registries.
type Auth struct {
	path string
}

// NewAuth returns an editor for the auth file at path.
func NewAuth(path string) *Auth { return &Auth{path: path} }

// Path returns the auth file location.
func (a *Auth) Path() string { return a.path }

// SetToken records a bearer token for the host of domain. An entry already
// present for that host is kept.
func (a *Auth) SetToken(domain, token string) error {
	host := hostOf(domain)
	if host == "" {
		return fmt.Errorf("no host in %q", domain)
	}

	data, err := os.ReadFile(a.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", a.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		data = []byte("{}")
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%s is not valid JSON", a.path)
	}

	key := "bearer." + escapePath(host)
	if gjson.GetBytes(data, key).Exists() {
		return nil
	}
	data, err = sjson.SetBytes(data, key, token)
	if err != nil {
		return fmt.Errorf("setting token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return err
	}
	out := pretty.PrettyOptions(data, &pretty.Options{Width: 80, Indent: "    "})
	return os.WriteFile(a.path, out, 0o600)
}

// Token returns the bearer token stored for the host of domain.
func (a *Auth) Token(domain string) (string, bool) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return "", false
	}
	r := gjson.GetBytes(data, "bearer."+escapePath(hostOf(domain)))
	return r.String(), r.Exists()
}

func hostOf(domain string) string {
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	u, err := url.Parse(domain)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
