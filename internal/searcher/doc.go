// Package searcher implements semantic search over the chunk index.
//
// A query is validated, embedded with the query task type and matched
// against the vector store. Each hit's Score is 1 - cosine distance; the
// store's ranking is kept as is.
//
//	s := searcher.New(stores.Vectors, client, cfg.Search.MaxTopK, logger)
//	results, err := s.Search(ctx, "how do I configure retries", 5)
//	if errors.Is(err, types.ErrValidation) {
//	    // empty query or top_k out of range
//	}
//
// Query embeddings are cached by the embedder client, so repeating a query
// does not call the provider again.
package searcher
