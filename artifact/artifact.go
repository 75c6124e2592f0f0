// Package artifact persists the fitted model and scaler as two gob files,
// each wrapped in a checksummed envelope.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/vinoscore/core/model"
	"github.com/YuminosukeSato/vinoscore/linear"
	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/YuminosukeSato/vinoscore/preprocessing"
)

// FormatVersion is written into every envelope. Older or newer versions are
// rejected on load.
const FormatVersion = 1

const (
	KindModel  = "model"
	KindScaler = "scaler"
)

// Default file names.
const (
	DefaultModelPath  = "wine_model.gob"
	DefaultScalerPath = "wine_scaler.gob"
)

// Envelope is the on-disk wrapper around a gob payload.
type Envelope struct {
	Kind      string
	Version   int
	CreatedAt time.Time
	// Checksum is the hex SHA-256 of Payload.
	Checksum string
	// Fingerprint is the WeightHash of the model. Scaler envelopes carry the
	// hash of the model they were saved with.
	Fingerprint string
	// CVFolds is the number of cross-validation folds behind the model.
	// Zero when unknown.
	CVFolds int
	Payload []byte
}

// Artifacts is the fitted pair loaded once at start up. It is never mutated
// after construction.
type Artifacts struct {
	Model  *linear.LinearRegression
	Scaler *preprocessing.StandardScaler

	// CVFolds is the fold count the model was validated with.
	CVFolds int

	ModelCreatedAt  time.Time
	ScalerCreatedAt time.Time
}

// Save encodes both artifacts and then writes them. Nothing is written if
// either fails to encode.
func Save(modelPath, scalerPath string, a *Artifacts) error {
	if a == nil || a.Model == nil || a.Scaler == nil {
		return errors.NewValueError("artifact.Save", "both model and scaler are required")
	}
	now := time.Now().UTC()
	fingerprint := a.Model.WeightHash()
	modelBlob, err := encode(KindModel, a.Model, Envelope{Fingerprint: fingerprint, CVFolds: a.CVFolds, CreatedAt: now})
	if err != nil {
		return err
	}
	scalerBlob, err := encode(KindScaler, a.Scaler, Envelope{Fingerprint: fingerprint, CreatedAt: now})
	if err != nil {
		return err
	}

	if err := writeAtomic(scalerPath, scalerBlob); err != nil {
		return err
	}
	return writeAtomic(modelPath, modelBlob)
}

// SaveModel writes a fitted model envelope to path. cvFolds may be zero.
func SaveModel(path string, m *linear.LinearRegression, cvFolds int) error {
	blob, err := encode(KindModel, m, Envelope{Fingerprint: m.WeightHash(), CVFolds: cvFolds, CreatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return writeAtomic(path, blob)
}

// SaveScaler writes a fitted scaler envelope to path, bound to the model it
// will be loaded with.
func SaveScaler(path string, s *preprocessing.StandardScaler, m *linear.LinearRegression) error {
	if m == nil {
		return errors.NewValueError("artifact.SaveScaler", "model is required")
	}
	blob, err := encode(KindScaler, s, Envelope{Fingerprint: m.WeightHash(), CreatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return writeAtomic(path, blob)
}

// LoadArtifacts reads both files. A missing file yields
// *errors.ArtifactMissingError; the model is checked first. A scaler saved
// with a different model is rejected as corrupt.
func LoadArtifacts(modelPath, scalerPath string) (*Artifacts, error) {
	var (
		m = &linear.LinearRegression{}
		s = &preprocessing.StandardScaler{}
	)
	modelEnv, err := load(modelPath, KindModel, m)
	if err != nil {
		return nil, err
	}
	if modelEnv.Fingerprint != m.WeightHash() {
		return nil, corrupt(modelPath, "weight fingerprint mismatch")
	}
	scalerEnv, err := load(scalerPath, KindScaler, s)
	if err != nil {
		return nil, err
	}
	if scalerEnv.Fingerprint != modelEnv.Fingerprint {
		return nil, corrupt(scalerPath, "scaler was saved with a different model")
	}
	return &Artifacts{
		Model:           m,
		Scaler:          s,
		CVFolds:         modelEnv.CVFolds,
		ModelCreatedAt:  modelEnv.CreatedAt,
		ScalerCreatedAt: scalerEnv.CreatedAt,
	}, nil
}

type fittable interface {
	IsFitted() bool
}

// encode fills kind, version, checksum and payload into env.
func encode(kind string, v fittable, env Envelope) ([]byte, error) {
	if !v.IsFitted() {
		return nil, errors.NewNotFittedError(kind, "artifact.Save")
	}
	payload, err := model.EncodeGob(v)
	if err != nil {
		return nil, errors.Wrapf(err, "artifact: encode %s", kind)
	}
	sum := sha256.Sum256(payload)
	env.Kind = kind
	env.Version = FormatVersion
	env.Checksum = hex.EncodeToString(sum[:])
	env.Payload = payload
	blob, err := model.EncodeGob(&env)
	if err != nil {
		return nil, errors.Wrapf(err, "artifact: encode %s envelope", kind)
	}
	return blob, nil
}

func load(path, kind string, into fittable) (*Envelope, error) {
	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.NewArtifactMissingError(kind, path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "artifact: read %s", path)
	}

	var env Envelope
	if err := model.DecodeGob(blob, &env); err != nil {
		return nil, corrupt(path, "undecodable envelope")
	}
	switch {
	case env.Kind != kind:
		return nil, corrupt(path, "expected "+kind+" artifact, found "+env.Kind)
	case env.Version != FormatVersion:
		return nil, corrupt(path, "unsupported format version")
	}
	sum := sha256.Sum256(env.Payload)
	if hex.EncodeToString(sum[:]) != env.Checksum {
		return nil, corrupt(path, "checksum mismatch")
	}
	if err := model.DecodeGob(env.Payload, into); err != nil {
		return nil, corrupt(path, "undecodable payload")
	}
	if !into.IsFitted() {
		return nil, corrupt(path, kind+" is not fitted")
	}
	return &env, nil
}

func corrupt(path, reason string) error {
	return errors.NewModelError("artifact.Load", reason+" in "+path, errors.ErrCorruptArtifact)
}

// writeAtomic writes data to a temp file in the target directory and renames
// it over path.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "artifact: create temp file in %s", dir)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "artifact: write %s", path)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "artifact: sync %s", path)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "artifact: close %s", path)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrapf(err, "artifact: chmod %s", path)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "artifact: rename into %s", path)
	}
	return nil
}
