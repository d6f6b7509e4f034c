package codec

import (
	"context"
	"io"

	"gopkg.in/yaml.v3"
)

// EncodeYAML writes docs as a YAML sequence.
func EncodeYAML(ctx context.Context, w io.Writer, docs []Document) error {
	vs, err := views(ctx, docs)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(vs); err != nil {
		return err
	}
	return enc.Close()
}
