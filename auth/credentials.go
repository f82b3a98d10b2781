// Package auth stores and loads bearer credentials for remote endpoints.
//
// Credentials are kept on disk, one JSON file per endpoint host, and are
// exposed as an oauth2 token source for attaching to outgoing requests.
package auth

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Credentials contain the bearer credential for one endpoint.
type Credentials struct {
	Endpoint string        `json:"endpoint"`
	Token    *oauth2.Token `json:"token"`
}

// New creates credentials with a static bearer token for an endpoint.
func New(endpoint, token string) *Credentials {
	return &Credentials{
		Endpoint: endpoint,
		Token:    &oauth2.Token{AccessToken: token, TokenType: "Bearer"},
	}
}

// TokenSource returns a token source that always yields the stored token.
func (c *Credentials) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(c.Token)
}

// DefaultDir is the directory credentials are stored in when no other
// directory is given.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home dir")
	}
	return filepath.Join(home, ".recon", "credentials"), nil
}

var hostRe = regexp.MustCompile("[^a-zA-Z0-9.-]+")

// filename resolves the file the endpoint's credentials are stored in. The
// name is derived from the endpoint host so one file exists per host.
func filename(dir, endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrapf(err, "parse endpoint %q", endpoint)
	}
	if u.Host == "" {
		return "", errors.Errorf("endpoint %q has no host", endpoint)
	}
	return filepath.Join(dir, hostRe.ReplaceAllString(u.Host, "-")), nil
}

// Persist saves the credentials to dir. Overwrites any previous credentials
// for the same endpoint host.
func (c *Credentials) Persist(dir string) error {
	file, err := filename(dir, c.Endpoint)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(c); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Load loads credentials for an endpoint from dir. Returns nil if no
// credentials exist for the endpoint.
func Load(dir, endpoint string) (*Credentials, error) {
	file, err := filename(dir, endpoint)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	c := &Credentials{}
	if err := json.NewDecoder(f).Decode(c); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return c, nil
}
