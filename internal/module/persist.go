package module

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/tracegridgo/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// Save writes the data of every parameter of m to w.
func Save(w io.Writer, m Module) error {
	values := make(map[string]cty.Value)
	for k, n := range m.ParametersDict() {
		values[k] = n.Peek()
	}
	buf, err := value.EncodeBlob(values)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// SaveFile writes the parameters of m to path.
func SaveFile(path string, m Module) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Save(f, m); err != nil {
		f.Close()
		return fmt.Errorf("saving parameters to %s: %w", path, err)
	}
	return f.Close()
}

// Load restores parameter data written by Save. Entries without a matching
// parameter and values that cannot be set are collected into one error;
// every other entry is still applied.
func Load(r io.Reader, m Module) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	values, err := value.DecodeBlob(buf)
	if err != nil {
		return err
	}

	params := m.ParametersDict()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var result *multierror.Error
	for _, k := range keys {
		n, ok := params[k]
		if !ok {
			result = multierror.Append(result, fmt.Errorf("unknown parameter %q", k))
			continue
		}
		if err := n.SetData(values[k]); err != nil {
			result = multierror.Append(result, fmt.Errorf("parameter %q: %w", k, err))
		}
	}
	return result.ErrorOrNil()
}

// LoadFile restores the parameters of m from path.
func LoadFile(path string, m Module) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := Load(f, m); err != nil {
		return fmt.Errorf("loading parameters from %s: %w", path, err)
	}
	return nil
}
