package dataset

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/YuminosukeSato/vinoscore/pkg/errors"
)

// ObjectOpener opens a Cloud Storage object for reading.
type ObjectOpener interface {
	Open(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// Source resolves a dataset URI to its bytes. The zero value reads local
// files and HTTP(S) URLs with http.DefaultClient and creates a Cloud Storage
// client on first use of a gs:// URI.
type Source struct {
	// HTTPClient is used for http and https URIs.
	HTTPClient *http.Client
	// Objects serves gs:// URIs.
	Objects ObjectOpener
	// SHA256 pins the hex digest of the raw bytes when non-empty.
	SHA256 string

	once      sync.Once
	gcsErr    error
	gcsClient *storage.Client
}

// Open returns a reader for uri. Supported forms: a bare path, file://,
// http://, https:// and gs://bucket/object.
func (s *Source) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	u, err := url.Parse(uri)
	if err != nil || len(u.Scheme) <= 1 {
		// bare path (or a Windows drive letter)
		return openFile(uri)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return openFile(u.Path)
	case "http", "https":
		return s.openHTTP(ctx, uri)
	case "gs":
		object := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || object == "" {
			return nil, errors.NewValueError("dataset.Open", fmt.Sprintf("gs uri must be gs://bucket/object, got %q", uri))
		}
		opener, err := s.objects(ctx)
		if err != nil {
			return nil, err
		}
		rc, err := opener.Open(ctx, u.Host, object)
		if err != nil {
			return nil, errors.Wrapf(err, "dataset: open %s", uri)
		}
		return rc, nil
	default:
		return nil, errors.NewValueError("dataset.Open", fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
}

// Fetch reads uri fully, checks the optional digest and parses the table.
func (s *Source) Fetch(ctx context.Context, uri string) (*Dataset, error) {
	rc, err := s.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: read %s", uri)
	}
	if err := s.verify(data); err != nil {
		return nil, err
	}
	return Load(bytes.NewReader(data))
}

func (s *Source) verify(data []byte) error {
	if s.SHA256 == "" {
		return nil
	}
	sum := sha256.Sum256(data)
	got := hex.EncodeToString(sum[:])
	if !strings.EqualFold(got, s.SHA256) {
		return errors.NewValidationError("dataset.sha256", "checksum mismatch", got)
	}
	return nil
}

func (s *Source) objects(ctx context.Context) (ObjectOpener, error) {
	if s.Objects != nil {
		return s.Objects, nil
	}
	s.once.Do(func() {
		client, err := storage.NewClient(ctx)
		if err != nil {
			s.gcsErr = errors.Wrap(err, "dataset: create storage client")
			return
		}
		s.gcsClient = client
	})
	if s.gcsErr != nil {
		return nil, s.gcsErr
	}
	return &gcsObjects{client: s.gcsClient}, nil
}

// Close releases the Cloud Storage client if one was created.
func (s *Source) Close() error {
	if s.gcsClient == nil {
		return nil
	}
	return s.gcsClient.Close()
}

func (s *Source) openHTTP(ctx context.Context, uri string) (io.ReadCloser, error) {
	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: build request for %s", uri)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: GET %s", uri)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.Newf("dataset: GET %s: unexpected status %s", uri, resp.Status)
	}
	return resp.Body, nil
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: open %s", path)
	}
	return f, nil
}

type gcsObjects struct {
	client *storage.Client
}

func (g *gcsObjects) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	r, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	return r, nil
}
