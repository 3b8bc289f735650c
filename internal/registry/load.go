package registry

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/tracegridgo/internal/ctxlog"
	"github.com/specialistvlad/tracegridgo/internal/fsutil"
)

var librarySchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{OperatorBlockSchema},
}

// LoadDir registers every operator declared in the .hcl files below path.
func (r *Registry) LoadDir(ctx context.Context, path string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading operator library...", "path", path)

	filePaths, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		logger.Error("Failed to walk operator library", "path", path, "error", err)
		return err
	}

	if len(filePaths) == 0 {
		logger.Warn("No .hcl operator files found in path", "path", path)
		return nil
	}

	parser := hclparse.NewParser()
	loaded := 0
	for _, filePath := range filePaths {
		file, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
		}

		content, diags := file.Body.Content(librarySchema)
		if diags.HasErrors() {
			return fmt.Errorf("failed to read operator library %s: %w", filePath, diags)
		}
		for _, block := range content.Blocks {
			t, diags := DecodeOperator(block)
			if diags.HasErrors() {
				return fmt.Errorf("failed to decode operator in %s: %w", filePath, diags)
			}
			if _, exists := r.Lookup(t.Name()); exists {
				return fmt.Errorf("%s: operator %q is already registered", filePath, t.Name())
			}
			r.Register(t)
			loaded++
		}
		logger.Debug("Loaded operators from HCL file", "file", filePath)
	}

	logger.Info("Operator library loaded.", "operators_loaded", loaded)
	return nil
}
