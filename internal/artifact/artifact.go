// Package artifact persists fitted pipelines as self-verifying JSON envelopes.
package artifact

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/jonathan/churnforge/internal/features"
	"github.com/jonathan/churnforge/internal/model"
)

// FormatVersion is the envelope layout written by Save.
const FormatVersion = 1

// Artifact is a fitted pipeline together with the run that produced it.
type Artifact struct {
	Pipeline  *model.Pipeline
	RunID     string
	CreatedAt time.Time
}

// ModelType names the classifier inside the artifact.
func (a *Artifact) ModelType() model.Kind { return a.Pipeline.Classifier.Name() }

type envelope struct {
	FormatVersion int             `json:"format_version"`
	RunID         string          `json:"run_id"`
	CreatedAt     time.Time       `json:"created_at"`
	ModelType     model.Kind      `json:"model_type"`
	Preprocessor  json.RawMessage `json:"preprocessor"`
	Classifier    json.RawMessage `json:"classifier"`
	Digest        string          `json:"digest"`
}

// Save writes a to path. The file is written to a temporary sibling and renamed
// into place, so readers never observe a partial artifact.
func Save(path string, a *Artifact) error {
	if a == nil || a.Pipeline == nil || a.Pipeline.Preprocessor == nil || a.Pipeline.Classifier == nil {
		return errors.New("artifact needs a fitted pipeline")
	}
	pre, err := json.Marshal(a.Pipeline.Preprocessor)
	if err != nil {
		return fmt.Errorf("failed to encode preprocessor: %w", err)
	}
	cls, err := json.Marshal(a.Pipeline.Classifier)
	if err != nil {
		return fmt.Errorf("failed to encode classifier: %w", err)
	}

	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	env := envelope{
		FormatVersion: FormatVersion,
		RunID:         a.RunID,
		CreatedAt:     created,
		ModelType:     a.ModelType(),
		Preprocessor:  pre,
		Classifier:    cls,
	}
	env.Digest, err = digest(env)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	return writeAtomic(path, data)
}

// Load reads and verifies the artifact at path.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &IntegrityError{Path: path, Message: "not a valid artifact document", Cause: err}
	}
	if env.FormatVersion != FormatVersion {
		return nil, &IntegrityError{Path: path, Message: fmt.Sprintf("unsupported format version %d", env.FormatVersion)}
	}
	want, err := digest(env)
	if err != nil {
		return nil, &IntegrityError{Path: path, Message: "payload cannot be digested", Cause: err}
	}
	if want != env.Digest {
		return nil, &IntegrityError{Path: path, Message: "digest mismatch"}
	}

	var pre features.Preprocessor
	if err := json.Unmarshal(env.Preprocessor, &pre); err != nil {
		return nil, &IntegrityError{Path: path, Message: "invalid preprocessor", Cause: err}
	}
	cls, err := model.Decode(env.ModelType, env.Classifier)
	if err != nil {
		return nil, &IntegrityError{Path: path, Message: "invalid classifier", Cause: err}
	}

	return &Artifact{
		Pipeline:  &model.Pipeline{Preprocessor: &pre, Classifier: cls},
		RunID:     env.RunID,
		CreatedAt: env.CreatedAt,
	}, nil
}

// Exists reports whether a regular file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// digest is the hex blake2b-256 over the identifying fields and the compacted payloads.
func digest(env envelope) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(h, "%d\n%s\n%s\n", env.FormatVersion, env.RunID, env.ModelType)
	for _, part := range []json.RawMessage{env.Preprocessor, env.Classifier} {
		var buf bytes.Buffer
		if err := json.Compact(&buf, part); err != nil {
			return "", err
		}
		h.Write(buf.Bytes())
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}
