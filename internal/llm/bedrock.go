package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	// DefaultBedrockModel is the Titan text embedding model.
	DefaultBedrockModel = "amazon.titan-embed-text-v2:0"

	// DefaultBedrockDimension is the default output dimension for Titan v2.
	DefaultBedrockDimension = 1024
)

// BedrockEmbedder implements Embedder using Amazon Bedrock Titan embeddings.
type BedrockEmbedder struct {
	client    *bedrockruntime.Client
	model     string
	dimension int
}

var _ Embedder = (*BedrockEmbedder)(nil)

// NewBedrockEmbedder creates a Bedrock-backed embedder. Credentials and,
// unless region is set, the region come from the default AWS config chain.
func NewBedrockEmbedder(ctx context.Context, model string, dimension int, region string) (*BedrockEmbedder, error) {
	if model == "" {
		model = DefaultBedrockModel
	}
	if dimension == 0 {
		dimension = DefaultBedrockDimension
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &BedrockEmbedder{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		model:     model,
		dimension: dimension,
	}, nil
}

// titanRequest is the Titan embedding request body.
type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// titanResponse is the Titan embedding response body.
type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// Embed generates an embedding vector for the given text.
func (e *BedrockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanRequest{InputText: text, Dimensions: e.dimension})
	if err != nil {
		return nil, embedErr(e.model, "marshal request: %v", err)
	}

	out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, embedErr(e.model, "invoke: %v", err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, embedErr(e.model, "parse response: %v", err)
	}

	if len(resp.Embedding) != e.dimension {
		return nil, embedErr(e.model, "dimension mismatch: got %d, want %d", len(resp.Embedding), e.dimension)
	}

	return resp.Embedding, nil
}

// EmbedBatch generates embeddings sequentially; Titan has no batch endpoint.
func (e *BedrockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

// Model returns the configured embedding model name.
func (e *BedrockEmbedder) Model() string {
	return e.model
}

// Dimension returns the expected embedding dimension.
func (e *BedrockEmbedder) Dimension() int {
	return e.dimension
}
