//go:build onnx

package brain

import (
	"github.com/synaptiq/membrain/pkg/config"
	"github.com/synaptiq/membrain/pkg/embed"
	embedONNX "github.com/synaptiq/membrain/pkg/embed/adapters/onnx"
)

// newONNXEmbedder builds the local ONNX embedder. Available only in builds
// with the onnx tag, which require the onnxruntime shared library.
func newONNXEmbedder(cfg config.ONNXConfig) (embed.Embedder, error) {
	return embedONNX.NewONNXEmbedder(embedONNX.Config{
		ModelPath:         cfg.ModelPath,
		TokenizerPath:     cfg.TokenizerPath,
		SharedLibraryPath: cfg.SharedLibraryPath,
		Dimensions:        cfg.Dimensions,
	})
}
