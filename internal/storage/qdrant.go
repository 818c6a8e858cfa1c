package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// upsertBatchSize bounds a single upsert request.
const upsertBatchSize = 100

// QdrantIndex stores session collections in a Qdrant server over gRPC.
type QdrantIndex struct {
	client   *qdrant.Client
	embedder Embedder
	dim      int

	// locks serializes collection creation per collection name.
	locks sync.Map
}

// NewQdrantIndex connects to Qdrant and validates the connection with a
// retried health check, failing fast if the server is unreachable. dim <= 0
// selects DefaultDimension.
func NewQdrantIndex(host string, port int, embedder Embedder, dim int) (*QdrantIndex, error) {
	if dim <= 0 {
		dim = DefaultDimension
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	index := &QdrantIndex{
		client:   client,
		embedder: embedder,
		dim:      dim,
	}

	if err := index.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}

	return index, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantIndex) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		return s.Health(ctx)
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantIndex) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantIndex) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Add embeds texts and upserts them as chunks of filename into the session's
// collection, creating the collection on first write.
func (s *QdrantIndex) Add(ctx context.Context, session, filename string, texts []string) error {
	if len(texts) == 0 {
		return nil
	}

	// Embed before taking any locks; this is the slow part.
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed texts: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for i, vector := range vectors {
		if len(vector) != s.dim {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(vector), s.dim)
		}
	}

	name := CollectionName(session)
	if err := s.ensureCollection(ctx, name); err != nil {
		return err
	}

	for i := 0; i < len(texts); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(texts))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for j := i; j < end; j++ {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(pointID(name, filename, j)),
				Vectors: qdrant.NewVectors(vectors[j]...),
				Payload: qdrant.NewValueMap(map[string]any{
					"content":     texts[j],
					"filename":    filename,
					"chunk_index": j,
				}),
			})
		}

		if err := s.upsertWithRetry(ctx, name, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// Search embeds the query and returns the closest chunks, best first. A
// session without a collection yields no results.
func (s *QdrantIndex) Search(ctx context.Context, session, query string, limit int) ([]*ScoredChunk, error) {
	if limit <= 0 {
		return nil, nil
	}

	name := CollectionName(session)
	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dim)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	chunks := make([]*ScoredChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		chunks = append(chunks, &ScoredChunk{
			Chunk: &Chunk{
				ID:         result.Id.GetUuid(),
				Text:       payload["content"].GetStringValue(),
				Filename:   payload["filename"].GetStringValue(),
				ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
			},
			Score: float64(result.Score),
		})
	}

	return chunks, nil
}

// ListFiles returns the distinct filenames in the session's collection,
// sorted alphabetically. Uses the Scroll API to page through all points.
func (s *QdrantIndex) ListFiles(ctx context.Context, session string) ([]string, error) {
	name := CollectionName(session)
	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var offset *qdrant.PointId
	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: name,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("filename"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll chunks: %w", err)
		}

		for _, result := range results {
			if filename := result.Payload["filename"].GetStringValue(); filename != "" {
				seen[filename] = struct{}{}
			}
		}

		// Stop when a page comes back short.
		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	files := make([]string, 0, len(seen))
	for filename := range seen {
		files = append(files, filename)
	}
	sort.Strings(files)
	return files, nil
}

// DeleteFile removes every chunk of the named file from the session's
// collection.
func (s *QdrantIndex) DeleteFile(ctx context.Context, session, filename string) error {
	name := CollectionName(session)
	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("filename", filename),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", filename, err)
	}
	return nil
}

// Clear drops the session's collection entirely. The next Add recreates it.
func (s *QdrantIndex) Clear(ctx context.Context, session string) error {
	name := CollectionName(session)
	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// Count reports the number of chunks in the session's collection.
func (s *QdrantIndex) Count(ctx context.Context, session string) (uint64, error) {
	name := CollectionName(session)
	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	collection, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection: %w", err)
	}
	return collection.GetPointsCount(), nil
}

// ensureCollection creates the collection and its payload index if missing.
// Idempotent; creation is serialized per collection so concurrent uploads
// for a new session do not race.
func (s *QdrantIndex) ensureCollection(ctx context.Context, name string) error {
	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Without the keyword index, filename filters fall back to full scans.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: name,
		FieldName:      "filename",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field filename: %w", err)
	}

	return nil
}

func (s *QdrantIndex) collectionExists(ctx context.Context, name string) (bool, error) {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, collection := range collections {
		if collection == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *QdrantIndex) lockFor(name string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(name, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// upsertWithRetry performs an upsert with exponential backoff retry.
func (s *QdrantIndex) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}
