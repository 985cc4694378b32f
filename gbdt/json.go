package gbdt

import (
	"encoding/json"
	"io"
	"os"

	"github.com/clinml/paascreen/pkg/errors"
)

// modelFileVersion guards against loading files written by an
// incompatible release.
const modelFileVersion = 1

type modelFile struct {
	Version int    `json:"version"`
	Model   *Model `json:"model"`
}

// SaveToFile writes the model as JSON.
func (m *Model) SaveToFile(path string) error {
	f, err := os.Create(path) // #nosec G304 - user-specified output path
	if err != nil {
		return errors.Wrap(err, "failed to create model file")
	}
	defer func() { _ = f.Close() }()

	return m.Save(f)
}

// Save writes the model as JSON to w.
func (m *Model) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(modelFile{Version: modelFileVersion, Model: m}); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadFromFile reads a JSON model written by SaveToFile.
func LoadFromFile(path string) (*Model, error) {
	f, err := os.Open(path) // #nosec G304 - user-specified input path
	if err != nil {
		return nil, errors.Wrap(err, "failed to open model file")
	}
	defer func() { _ = f.Close() }()

	return Load(f)
}

// Load reads a JSON model from r.
func Load(r io.Reader) (*Model, error) {
	var file modelFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, errors.Wrap(err, "failed to decode model")
	}
	if file.Version != modelFileVersion {
		return nil, errors.Newf("paascreen: unsupported model file version %d", file.Version)
	}
	if file.Model == nil {
		return nil, errors.New("paascreen: model file has no model payload")
	}
	return file.Model, nil
}
