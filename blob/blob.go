// Package blob stores media objects on the local filesystem and issues
// expiring HMAC-signed URLs for them.
package blob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidPath indicates an object path that escapes the store root.
	ErrInvalidPath = errors.New("invalid object path")

	// ErrSignatureInvalid indicates a signed URL whose signature does not match.
	ErrSignatureInvalid = errors.New("invalid signature")

	// ErrSignatureExpired indicates a signed URL past its expiry.
	ErrSignatureExpired = errors.New("signature expired")

	// ErrSecretRequired indicates a store created without a signing secret.
	ErrSecretRequired = errors.New("signing secret is required")
)

// Store is a filesystem object store rooted at a directory.
type Store struct {
	root    string
	baseURL string
	secret  []byte
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store under root. Signed URLs are rooted at baseURL.
func NewStore(root, baseURL string, secret []byte, opts ...Option) (*Store, error) {
	if len(secret) == 0 {
		return nil, ErrSecretRequired
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	s := &Store{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		secret:  secret,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "blob")
	return s, nil
}

// Upload copies localPath to <jobID>/original<ext> and returns that path.
// contentType is recorded in the log only; the filesystem keeps no metadata.
func (s *Store) Upload(ctx context.Context, jobID, localPath, contentType string) (string, error) {
	objectPath := path.Join(jobID, "original"+filepath.Ext(localPath))
	if err := s.put(ctx, objectPath, localPath); err != nil {
		return "", err
	}
	s.logger.Debug("uploaded media", "path", objectPath, "content_type", contentType)
	return objectPath, nil
}

// UploadPreview stores a preview clip at <jobID>/previews/<start>_<end>.mp4.
func (s *Store) UploadPreview(ctx context.Context, jobID, localPath string, startMs, endMs int64) (string, error) {
	objectPath := path.Join(jobID, "previews", fmt.Sprintf("%d_%d.mp4", startMs, endMs))
	if err := s.put(ctx, objectPath, localPath); err != nil {
		return "", err
	}
	return objectPath, nil
}

func (s *Store) put(ctx context.Context, objectPath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("copy object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit object: %w", err)
	}
	return nil
}

// SignedURL returns <baseURL>/blob/<path>?expires=<unix>&sig=<hmac>.
func (s *Store) SignedURL(objectPath string, ttl time.Duration) (string, error) {
	if _, err := s.resolve(objectPath); err != nil {
		return "", err
	}
	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.sign(objectPath, expires))
	return s.baseURL + "/blob/" + objectPath + "?" + q.Encode(), nil
}

// Verify checks a signature produced by SignedURL.
func (s *Store) Verify(objectPath, expires, sig string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	want := s.sign(objectPath, exp)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrSignatureInvalid
	}
	if s.now().Unix() > exp {
		return ErrSignatureExpired
	}
	return nil
}

// Open returns a reader for an object. The caller closes it.
func (s *Store) Open(objectPath string) (*os.File, error) {
	full, err := s.resolve(objectPath)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Exists reports whether an object is stored.
func (s *Store) Exists(objectPath string) bool {
	full, err := s.resolve(objectPath)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// Delete removes an object. Missing objects are not an error.
func (s *Store) Delete(objectPath string) error {
	full, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) sign(objectPath string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(objectPath))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// resolve maps an object path to a file under root, rejecting escapes.
func (s *Store) resolve(objectPath string) (string, error) {
	if objectPath == "" || strings.HasPrefix(objectPath, "/") || strings.Contains(objectPath, "\\") {
		return "", ErrInvalidPath
	}
	clean := path.Clean(objectPath)
	if clean != objectPath || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
