package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/restructor/domain"
	"github.com/ludo-technologies/restructor/internal/ir"
)

// Extensions lists the file extensions accepted as class documents
var Extensions = []string{".yaml", ".yml", ".json"}

// IsClassDocument reports whether path has a class document extension
func IsClassDocument(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadFile reads every class in the document at path
func LoadFile(path string) ([]*ir.Class, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewFileNotFoundError(path, err)
		}
		return nil, domain.NewInvalidInputError(fmt.Sprintf("cannot read %s", path), err)
	}
	classes, err := LoadBytes(data)
	if err != nil {
		return nil, domain.NewParseError(path, err)
	}
	return classes, nil
}

// LoadBytes decodes a YAML stream, possibly holding several documents, or
// a JSON object. Each document describes one class.
func LoadBytes(data []byte) ([]*ir.Class, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads class documents from r until EOF
func Decode(r io.Reader) ([]*ir.Class, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var classes []*ir.Class
	for {
		var doc classDoc
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		class, err := convertClass(&doc)
		if err != nil {
			return nil, err
		}
		classes = append(classes, class)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("no class documents found")
	}
	return classes, nil
}
