package engine

import (
	"encoding/json"
	"fmt"

	"github.com/hyperjump/shiori/internal/models"
)

// ArtifactVersion is the artifact format this package reads and writes.
const ArtifactVersion = 1

// Artifact is the serialised form of an index: the documents in engine order
// and the stemmer they were built for.
type Artifact struct {
	Version   int                `json:"version"`
	Stemmer   Stemmer            `json:"stemmer,omitempty"`
	Documents []*models.Document `json:"documents"`
}

// EncodeArtifact validates docs and serialises them as a current-version artifact.
func EncodeArtifact(stemmer Stemmer, docs []*models.Document) ([]byte, error) {
	a := &Artifact{Version: ArtifactVersion, Stemmer: stemmer, Documents: docs}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(a)
}

// DecodeArtifact parses and validates an artifact. Every failure is an
// *IndexLoadError.
func DecodeArtifact(data []byte) (*Artifact, error) {
	if len(data) == 0 {
		return nil, loadError("empty artifact", nil)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, loadError("malformed artifact", err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *Artifact) validate() error {
	if a.Version != ArtifactVersion {
		return loadError(fmt.Sprintf("unsupported artifact version %d", a.Version), nil)
	}
	if a.Stemmer != "" {
		if _, err := ParseStemmer(string(a.Stemmer)); err != nil {
			return loadError("invalid stemmer", err)
		}
	}
	seen := make(map[string]struct{}, len(a.Documents))
	for i, doc := range a.Documents {
		if doc == nil || doc.ID == "" {
			return loadError(fmt.Sprintf("document %d has no id", i), nil)
		}
		if _, dup := seen[doc.ID]; dup {
			return loadError(fmt.Sprintf("duplicate document id %q", doc.ID), nil)
		}
		seen[doc.ID] = struct{}{}
		for _, h := range doc.Headings {
			if h.Start < 0 || h.End < h.Start || h.End > len(doc.Content) {
				return loadError(fmt.Sprintf("document %q: heading [%d,%d) out of range", doc.ID, h.Start, h.End), nil)
			}
		}
	}
	return nil
}
