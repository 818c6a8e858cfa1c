package rag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/calder-ai/studyhall/internal/generation"
	"github.com/calder-ai/studyhall/internal/segment"
	"github.com/calder-ai/studyhall/internal/storage"
)

type addCall struct {
	session  string
	filename string
	texts    []string
}

type fakeIndex struct {
	files     []string
	results   []*storage.ScoredChunk
	searchErr error

	addCalls  []addCall
	deleted   []string
	cleared   bool
	lastQuery string
	lastTopK  int
}

func (f *fakeIndex) Add(ctx context.Context, session, filename string, texts []string) error {
	f.addCalls = append(f.addCalls, addCall{session: session, filename: filename, texts: texts})
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, session, query string, limit int) ([]*storage.ScoredChunk, error) {
	f.lastQuery = query
	f.lastTopK = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit < len(f.results) {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func (f *fakeIndex) ListFiles(ctx context.Context, session string) ([]string, error) {
	return f.files, nil
}

func (f *fakeIndex) DeleteFile(ctx context.Context, session, filename string) error {
	f.deleted = append(f.deleted, filename)
	return nil
}

func (f *fakeIndex) Clear(ctx context.Context, session string) error {
	f.cleared = true
	return nil
}

func (f *fakeIndex) Count(ctx context.Context, session string) (uint64, error) {
	return uint64(len(f.results)), nil
}

func (f *fakeIndex) Health(ctx context.Context) error { return nil }
func (f *fakeIndex) Close() error                     { return nil }

type fakeGenerator struct {
	textAnswer string
	textErr    error
	structured generation.StructuredResult
	structErr  error

	lastQuestion    string
	lastContext     string
	lastInstruction string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, question, contextText string) (string, error) {
	f.lastQuestion = question
	f.lastContext = contextText
	return f.textAnswer, f.textErr
}

func (f *fakeGenerator) GenerateStructured(ctx context.Context, instruction, contextText string) (generation.StructuredResult, error) {
	f.lastInstruction = instruction
	f.lastContext = contextText
	return f.structured, f.structErr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, index *fakeIndex, gen *fakeGenerator) *Service {
	t.Helper()
	splitter, err := segment.NewSplitter(0, 0)
	if err != nil {
		t.Fatalf("Failed to create splitter: %v", err)
	}
	return New(index, gen, splitter, quietLogger())
}

func scored(text, filename string, index int) *storage.ScoredChunk {
	return &storage.ScoredChunk{
		Chunk: &storage.Chunk{ID: "id", Text: text, Filename: filename, ChunkIndex: index},
		Score: 0.9,
	}
}

// TestUpload_SplitsAndIndexes verifies text is chunked and handed to the
// index under the right session and filename.
func TestUpload_SplitsAndIndexes(t *testing.T) {
	index := &fakeIndex{}
	splitter, err := segment.NewSplitter(10, 2)
	if err != nil {
		t.Fatalf("Failed to create splitter: %v", err)
	}
	service := New(index, &fakeGenerator{}, splitter, quietLogger())

	text := strings.Repeat("abcde", 6) // 30 runes, chunk 10 overlap 2 -> 4 chunks
	count, err := service.Upload(context.Background(), "sess", "notes.pdf", text)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if count != 4 {
		t.Errorf("Expected 4 chunks, got %d", count)
	}
	if len(index.addCalls) != 1 {
		t.Fatalf("Expected 1 Add call, got %d", len(index.addCalls))
	}
	call := index.addCalls[0]
	if call.session != "sess" || call.filename != "notes.pdf" {
		t.Errorf("Unexpected Add target: %+v", call)
	}
	if len(call.texts) != 4 {
		t.Errorf("Expected 4 texts indexed, got %d", len(call.texts))
	}
}

// TestUpload_EmptyTextIndexesNothing verifies a file with no extractable
// text succeeds with zero chunks.
func TestUpload_EmptyTextIndexesNothing(t *testing.T) {
	index := &fakeIndex{}
	service := newTestService(t, index, &fakeGenerator{})

	count, err := service.Upload(context.Background(), "sess", "scan.pdf", "")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 chunks, got %d", count)
	}
}

// TestQuery_GroundedAnswer verifies retrieval feeds the generator and
// sources are deduplicated in rank order.
func TestQuery_GroundedAnswer(t *testing.T) {
	index := &fakeIndex{results: []*storage.ScoredChunk{
		scored("chunk one", "a.pdf", 0),
		scored("chunk two", "a.pdf", 1),
		scored("chunk three", "b.pdf", 0),
	}}
	gen := &fakeGenerator{textAnswer: "the answer"}
	service := newTestService(t, index, gen)

	answer, err := service.Query(context.Background(), "sess", "what is x?")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if index.lastQuery != "what is x?" || index.lastTopK != 5 {
		t.Errorf("Unexpected search call: query=%q topK=%d", index.lastQuery, index.lastTopK)
	}
	wantContext := "chunk one\n\n---\n\nchunk two\n\n---\n\nchunk three"
	if gen.lastContext != wantContext {
		t.Errorf("Unexpected context:\n%s", gen.lastContext)
	}
	if gen.lastQuestion != "what is x?" {
		t.Errorf("Unexpected question %q", gen.lastQuestion)
	}
	if answer.Answer != "the answer" {
		t.Errorf("Unexpected answer %q", answer.Answer)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("Expected 2 deduplicated sources, got %d", len(answer.Sources))
	}
	if answer.Sources[0].Filename != "a.pdf" || answer.Sources[1].Filename != "b.pdf" {
		t.Errorf("Sources out of rank order: %+v", answer.Sources)
	}
	if answer.Sources[0].Snippet != "chunk one" {
		t.Errorf("Expected snippet from best chunk, got %q", answer.Sources[0].Snippet)
	}
}

// TestQuery_NoMaterialsStillAnswers verifies an empty session asks the model
// ungrounded instead of failing.
func TestQuery_NoMaterialsStillAnswers(t *testing.T) {
	gen := &fakeGenerator{textAnswer: "general knowledge"}
	service := newTestService(t, &fakeIndex{}, gen)

	answer, err := service.Query(context.Background(), "sess", "what is x?")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if gen.lastContext != "" {
		t.Errorf("Expected empty context, got %q", gen.lastContext)
	}
	if answer.Answer != "general knowledge" {
		t.Errorf("Unexpected answer %q", answer.Answer)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("Expected no sources, got %+v", answer.Sources)
	}
}

// TestQuery_GeneratorErrorPropagates verifies upstream failures are not
// swallowed.
func TestQuery_GeneratorErrorPropagates(t *testing.T) {
	wantErr := errors.New("model down")
	service := newTestService(t, &fakeIndex{}, &fakeGenerator{textErr: wantErr})

	_, err := service.Query(context.Background(), "sess", "q")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected generator error, got %v", err)
	}
}

// TestSnippet_Truncation verifies long chunks are cut at 200 runes with an
// ellipsis and short ones pass through.
func TestSnippet_Truncation(t *testing.T) {
	long := strings.Repeat("あ", 250)
	got := snippet(long)
	if []rune(got)[200] != '.' || len([]rune(got)) != 203 {
		t.Errorf("Expected 200 runes plus ellipsis, got %d runes", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Expected ellipsis suffix, got %q", got[len(got)-9:])
	}

	if snippet("short") != "short" {
		t.Errorf("Expected short text unchanged")
	}
}

// TestMaterials_MapsFilenames verifies the file list becomes material
// records.
func TestMaterials_MapsFilenames(t *testing.T) {
	index := &fakeIndex{files: []string{"a.pdf", "b.md"}}
	service := newTestService(t, index, &fakeGenerator{})

	materials, err := service.Materials(context.Background(), "sess")
	if err != nil {
		t.Fatalf("Materials failed: %v", err)
	}
	if len(materials) != 2 || materials[0].Filename != "a.pdf" || materials[1].Filename != "b.md" {
		t.Errorf("Unexpected materials %+v", materials)
	}
}

// TestDeleteAndClear verifies delegation to the index.
func TestDeleteAndClear(t *testing.T) {
	index := &fakeIndex{}
	service := newTestService(t, index, &fakeGenerator{})

	if err := service.DeleteMaterial(context.Background(), "sess", "a.pdf"); err != nil {
		t.Fatalf("DeleteMaterial failed: %v", err)
	}
	if len(index.deleted) != 1 || index.deleted[0] != "a.pdf" {
		t.Errorf("Expected a.pdf deleted, got %v", index.deleted)
	}

	if err := service.ClearMaterials(context.Background(), "sess"); err != nil {
		t.Fatalf("ClearMaterials failed: %v", err)
	}
	if !index.cleared {
		t.Error("Expected index cleared")
	}
}
