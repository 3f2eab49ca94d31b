package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyperjump/shiori/internal/engine"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/pkg/utils"
)

func newPackCmd() *cobra.Command {
	var output, stemmer string
	cmd := &cobra.Command{
		Use:   "pack [flags] <documents.json>",
		Short: "Wrap a JSON document list into a base64 index artifact",
		Long: `Read a JSON array of documents ({id, title, url, content, headings}) and
write the base64 index artifact that serve and search load. Content must
already carry the title header; no parsing of source files is done here.
Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			artifact, err := packDocuments(in, stemmer)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(artifact)
				return err
			}
			if err := writeFileAtomic(output, artifact); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes)\n", output, len(artifact))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "artifact path, - for stdout")
	cmd.Flags().StringVar(&stemmer, "stemmer", string(engine.StemmerEnglish), "stemmer recorded in the artifact")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	return data, nil
}

// packDocuments validates a JSON document list and returns the encoded artifact.
func packDocuments(data []byte, stemmerName string) ([]byte, error) {
	stemmer, err := engine.ParseStemmer(stemmerName)
	if err != nil {
		return nil, err
	}
	var docs []*models.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("invalid document list: %w", err)
	}
	raw, err := engine.EncodeArtifact(stemmer, docs)
	if err != nil {
		return nil, err
	}
	return utils.EncodeIndex(raw), nil
}

// writeFileAtomic replaces path in one rename so a watching server never
// reads a partial artifact.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
