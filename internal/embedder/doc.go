// Package embedder generates vector embeddings for document chunks and queries.
//
// A Provider performs a single embedding round trip. Three providers exist and
// exactly one is selected by configuration:
//
//   - gemini: the Gemini batchEmbedContents REST API, with distinct task types
//     for documents (RETRIEVAL_DOCUMENT) and queries (RETRIEVAL_QUERY)
//   - ollama: a local Ollama server through langchaingo
//   - local: deterministic feature-hashed vectors, for offline use and tests
//
// # Basic Usage
//
//	provider, err := embedder.NewProvider(embedder.Config{Provider: "gemini", APIKey: key})
//	if err != nil {
//	    return err
//	}
//	client := embedder.NewClient(provider, embedder.ClientConfig{
//	    BatchSize: 100,
//	    Retry:     embedder.DefaultRetryConfig(),
//	}, logger)
//	defer client.Close()
//
//	resp, err := client.EmbedDocuments(ctx, texts)   // batched, document task type
//	vec, err := client.EmbedQuery(ctx, "how to ...")  // cached, query task type
//
// # Retries
//
// Each batch is attempted up to MaxRetries times. The wait after failure n is
// BaseDelay * Multiplier^(n-1), capped at MaxDelay, and is abandoned as soon
// as the context is cancelled. Once attempts are exhausted the error wraps both
// types.ErrEmbeddingService and ErrRetriesExhausted. Client errors reported by
// the API (400, 401, 403, 404) are not retried.
package embedder
