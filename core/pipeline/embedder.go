package pipeline

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/dharmarag/helper"
)

const (
	// DefaultEmbeddingModel produces 384 dimensional sentence embeddings.
	DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"
	// DefaultOnnxFile is the file used from the model repository.
	DefaultOnnxFile = "onnx/model.onnx"
)

// DefaultEmbedder creates an embedder running a sentence transformer through
// hugot's pure Go backend. An empty model name selects DefaultEmbeddingModel.
func DefaultEmbedder(modelName string, onnxFile string) (EmbedFunc, error) {
	if modelName == "" {
		modelName = DefaultEmbeddingModel
		onnxFile = DefaultOnnxFile
	}

	modelPath, err := helper.PrepareModel(modelName, onnxFile)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "dharmarag-embedder",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	// The pipeline is not safe for concurrent runs.
	var mu sync.Mutex
	return func(text string) ([]float32, error) {
		mu.Lock()
		defer mu.Unlock()

		result, err := sentencePipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}
		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}
		return result.Embeddings[0], nil
	}, nil
}

// HashEmbedder returns an offline embedder hashing lower-cased words into
// dim buckets. Texts sharing words point in similar directions.
func HashEmbedder(dim int) EmbedFunc {
	return func(text string) ([]float32, error) {
		if dim <= 0 {
			return nil, fmt.Errorf("invalid embedding dimension %d", dim)
		}

		embedding := make([]float32, dim)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, word := range words {
			h := fnv.New32a()
			_, _ = h.Write([]byte(word))
			embedding[h.Sum32()%uint32(dim)]++
		}
		// keeps the vector non-zero for empty text
		embedding[dim-1] += 0.01
		return embedding, nil
	}
}
