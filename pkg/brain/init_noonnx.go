//go:build !onnx

package brain

import (
	"fmt"

	"github.com/synaptiq/membrain/pkg/config"
	"github.com/synaptiq/membrain/pkg/embed"
)

// newONNXEmbedder reports that ONNX support was not compiled in. Build with
// -tags onnx to enable the local embedding model.
func newONNXEmbedder(cfg config.ONNXConfig) (embed.Embedder, error) {
	return nil, fmt.Errorf("onnx embedding support not built; rebuild with -tags onnx")
}
