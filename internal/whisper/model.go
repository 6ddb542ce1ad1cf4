package whisper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrModelNotFound = errors.New("model not found")

// DefaultModelBaseURL serves the CTranslate2 conversion of whisper large-v3 used by faster-whisper.
const DefaultModelBaseURL = "https://huggingface.co/Systran/faster-whisper-large-v3/resolve/main"

// ModelChecksumHeader carries the sha256 of LFS-stored files such as model.bin on the
// Hugging Face resolve endpoint.
const ModelChecksumHeader = "X-Linked-Etag"

// ModelFiles lists what a CTranslate2 whisper directory contains. Only the required
// files are needed to load; the tokenizer files are otherwise fetched by the runtime.
var ModelFiles = []ModelFile{
	{Name: "config.json", Required: true},
	{Name: "model.bin", Required: true},
	{Name: "preprocessor_config.json"},
	{Name: "tokenizer.json"},
	{Name: "vocabulary.json"},
}

type ModelFile struct {
	Name     string
	Required bool
}

type ResolvedModel struct {
	Dir     string
	Missing []string
}

func (r ResolvedModel) NeedsDownload() bool {
	return len(r.Missing) > 0
}

func (r ResolvedModel) MissingRequired() []string {
	var missing []string
	for _, name := range r.Missing {
		for _, file := range ModelFiles {
			if file.Name == name && file.Required {
				missing = append(missing, name)
			}
		}
	}
	return missing
}

func ModelFileURL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/" + name
}

// InspectModelDir reports which model files are absent from dir. A missing directory is
// not an error; every file is then reported missing.
func InspectModelDir(dir string) (ResolvedModel, error) {
	if strings.TrimSpace(dir) == "" {
		return ResolvedModel{}, errors.New("model directory must not be empty")
	}

	dir = filepath.Clean(dir)
	resolved := ResolvedModel{Dir: dir}
	for _, file := range ModelFiles {
		info, err := os.Stat(filepath.Join(dir, file.Name))
		switch {
		case errors.Is(err, os.ErrNotExist):
			resolved.Missing = append(resolved.Missing, file.Name)
		case err != nil:
			return ResolvedModel{}, fmt.Errorf("stat model file: %w", err)
		case info.IsDir():
			return ResolvedModel{}, fmt.Errorf("model file %s is a directory", filepath.Join(dir, file.Name))
		}
	}

	return resolved, nil
}

// ResolveModelDir returns dir when it holds a loadable model.
func ResolveModelDir(dir string) (string, error) {
	resolved, err := InspectModelDir(dir)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(resolved.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: directory %s does not exist; run `fwtext setup` to download it", ErrModelNotFound, resolved.Dir)
	}
	if err != nil {
		return "", fmt.Errorf("stat model directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrModelNotFound, resolved.Dir)
	}

	if missing := resolved.MissingRequired(); len(missing) > 0 {
		return "", fmt.Errorf("%w: %s is missing %s; run `fwtext setup` to download it", ErrModelNotFound, resolved.Dir, strings.Join(missing, ", "))
	}

	return resolved.Dir, nil
}
