package storage

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FSStore keeps blobs under a base directory and serves them through the
// /assets route of the API.
type FSStore struct {
	base      string
	urlPrefix string
	signer    *URLSigner // nil: links are unsigned and Verify always fails
}

type FSOption func(*FSStore)

// WithSigner makes SignedURL append an expiring token that Verify accepts.
func WithSigner(s *URLSigner) FSOption { return func(f *FSStore) { f.signer = s } }

func NewFSStore(base string, opts ...FSOption) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	s := &FSStore{base: base, urlPrefix: "/assets/"}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// cleanKey normalises key to a slash-separated relative path inside the store.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return k, nil
}

func (s *FSStore) Put(key string, r io.Reader) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.base, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return k, nil
}

func (s *FSStore) Get(key string) (io.ReadCloser, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.base, filepath.FromSlash(k)))
}

func (s *FSStore) SignedURL(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	u := url.URL{Path: s.urlPrefix + k}
	if s.signer == nil {
		return u.EscapedPath(), nil
	}
	tok, err := s.signer.Sign(k)
	if err != nil {
		return "", err
	}
	return u.EscapedPath() + "?" + url.Values{"token": {tok}}.Encode(), nil
}

func (s *FSStore) Verify(key, token string) error {
	if s.signer == nil {
		return fmt.Errorf("%w: signing is not configured", ErrBadSignature)
	}
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	return s.signer.Verify(k, token)
}
