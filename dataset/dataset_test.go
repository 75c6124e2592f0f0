package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/YuminosukeSato/vinoscore/wine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `"fixed acidity";"volatile acidity";"citric acid";"residual sugar";"chlorides";"free sulfur dioxide";"total sulfur dioxide";"density";"pH";"sulphates";"alcohol";"quality"
7.4;0.7;0;1.9;0.076;11;34;0.9978;3.51;0.56;9.4;5
7.8;0.88;0;2.6;0.098;25;67;0.9968;3.2;0.68;9.8;5
11.2;0.28;0.56;1.9;0.075;17;60;0.998;3.16;0.58;9.8;6
`

func TestLoad(t *testing.T) {
	ds, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Samples())
	assert.Equal(t, wine.FeatureNames(), ds.Features)
	assert.Equal(t, 7.4, ds.X.At(0, 0))
	assert.Equal(t, 9.8, ds.X.At(2, 10))
	assert.Equal(t, 6.0, ds.Y.AtVec(2))
}

func TestLoad_ReordersColumns(t *testing.T) {
	// quality first, alcohol and fixed acidity swapped
	in := "quality;alcohol;volatile acidity;citric acid;residual sugar;chlorides;free sulfur dioxide;total sulfur dioxide;density;pH;sulphates;fixed acidity\n" +
		"5;9.4;0.7;0;1.9;0.076;11;34;0.9978;3.51;0.56;7.4\n"

	ds, err := Load(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 7.4, ds.X.At(0, 0))
	assert.Equal(t, 9.4, ds.X.At(0, 10))
	assert.Equal(t, 5.0, ds.Y.AtVec(0))
}

func TestLoad_Errors(t *testing.T) {
	header := strings.Join(append(wine.FeatureNames(), "quality"), ";")

	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"empty input", "", "missing header"},
		{"header only", header + "\n", "no data rows"},
		{"extra column", header + ";colour\n", "want exactly 12"},
		{"unknown column", strings.Replace(header, "alcohol", "ethanol", 1) + "\n", `unexpected column "ethanol"`},
		{"duplicate column", strings.Replace(header, "alcohol", "pH", 1) + "\n", `duplicate column "pH"`},
		{"missing quality", strings.Replace(header, "quality", "alcohol", 1) + "\n", `duplicate column "alcohol"`},
		{"bad number", header + "\n7.4;0.7;0;1.9;0.076;11;34;0.9978;x;0.56;9.4;5\n", "line 2, column"},
		{"short row", header + "\n7.4;0.7\n", "wrong number of fields"},
		{"NaN cell", header + "\n7.4;0.7;0;1.9;0.076;11;34;0.9978;NaN;0.56;9.4;5\n", "not finite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSource_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "winequality-red.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	src := &Source{}
	for _, uri := range []string{path, "file://" + path} {
		ds, err := src.Fetch(context.Background(), uri)
		require.NoError(t, err, uri)
		assert.Equal(t, 3, ds.Samples())
	}

	_, err := src.Fetch(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSource_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/winequality-red.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, sampleCSV)
	}))
	defer srv.Close()

	src := &Source{HTTPClient: srv.Client()}

	ds, err := src.Fetch(context.Background(), srv.URL+"/winequality-red.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Samples())

	_, err = src.Fetch(context.Background(), srv.URL+"/nope.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestSource_HTTPHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Source{HTTPClient: srv.Client()}).Fetch(ctx, srv.URL)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSource_SHA256Pin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wine.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	sum := sha256.Sum256([]byte(sampleCSV))
	good := hex.EncodeToString(sum[:])

	_, err := (&Source{SHA256: strings.ToUpper(good)}).Fetch(context.Background(), path)
	require.NoError(t, err)

	_, err = (&Source{SHA256: strings.Repeat("0", 64)}).Fetch(context.Background(), path)
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "checksum mismatch", ve.Reason)
}

type fakeObjects struct {
	bucket, object string
	body           string
}

func (f *fakeObjects) Open(_ context.Context, bucket, object string) (io.ReadCloser, error) {
	f.bucket, f.object = bucket, object
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func TestSource_GCS(t *testing.T) {
	objects := &fakeObjects{body: sampleCSV}
	src := &Source{Objects: objects}

	ds, err := src.Fetch(context.Background(), "gs://wine-data/uci/winequality-red.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Samples())
	assert.Equal(t, "wine-data", objects.bucket)
	assert.Equal(t, "uci/winequality-red.csv", objects.object)
	assert.NoError(t, src.Close())

	_, err = src.Open(context.Background(), "gs://wine-data")
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestSource_UnsupportedScheme(t *testing.T) {
	_, err := (&Source{}).Open(context.Background(), "ftp://example.com/wine.csv")
	var ve *errors.ValueError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Message, "ftp")
}
