package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDefinition reports that rendered output failed compose loading.
var ErrInvalidDefinition = errors.New("rendered definition is not a valid compose file")

// Lint runs the rendered definition through the compose loader. The renderer
// is supposed to make this impossible to fail; the dispatcher still lints
// before syncing so a renderer regression never reaches the engine.
func Lint(definition []byte) error {
	var dict map[string]interface{}
	if err := yaml.Unmarshal(definition, &dict); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	if dict == nil {
		return fmt.Errorf("%w: empty document", ErrInvalidDefinition)
	}

	// The loader considers the version attribute obsolete and warns about it
	// on every load. The rendered file keeps it for the engine; the lint copy
	// drops it to keep the loader quiet.
	delete(dict, "version")

	_, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				// The loader's project-name scan reads Filename from disk
				// when Content is nil, even though Config drives the load.
				Content: definition,
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("fusionctl-lint", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = true
		// In-memory content, nothing to resolve or extend.
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	return nil
}
