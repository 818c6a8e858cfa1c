package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/calder-ai/studyhall/internal/extract"
)

// Canned retrieval queries. Each artifact pulls context that matches what it
// is about to generate rather than reusing the user's words.
const (
	analyzeQuery    = "What are the key concepts and main topics in these documents?"
	conceptsQuery   = "What are the most important technical terms, concepts, and definitions in these materials?"
	quizQuery       = "What are the most important facts, dates, and technical details in these materials?"
	flashcardsQuery = "What are the key definitions, formulas, and core concepts in these materials?"
)

const (
	defaultQuizCount      = 3
	defaultFlashcardCount = 5
)

const analyzeInstruction = `Analyze the following study materials: %s.

Provide a comprehensive analysis in two parts:
1. A general synthesis of how these documents connect and supplement each other.
2. A structured 'Learning Path' (list of 4-6 specific steps) to master this content.

CRITICAL: If the materials contain math or numerical problems, use LaTeX formatting
($...$ for inline, $...$ for blocks) in your analysis.

Format your response as a JSON object:
{
    "analysis": "Your detailed synthesis text here...",
    "learning_path": ["Step 1...", "Step 2...", ...]
}`

const conceptsInstruction = `Extract the top 8-10 most important technical concepts or terms from the provided context.
Also identify 5-8 relationships between these concepts.

CRITICAL: For any mathematical formulas or numerical examples in the definitions,
ALWAYS use LaTeX formatting with $ for inline and $ for blocks.

For each concept, provide:
1. The term itself.
2. A concise 1-sentence definition.
3. An importance score from 1 to 10.

For each relationship, provide:
1. Source concept term.
2. Target concept term.
3. A short description of the relationship (e.g., "is a type of", "uses", "depends on").

Format the output as a JSON object with two keys: "concepts" (list of objects) and "links" (list of objects).
Example: {
    "concepts": [{"term": "HTML", "definition": "...", "importance": 10}],
    "links": [{"source": "HTML", "target": "Web Browser", "relationship": "rendered by"}]
}
Only return the JSON object, nothing else.`

const quizInstruction = `Generate %d high-quality multiple-choice questions based on the provided context.
Each question must have:
1. A clear question.
2. Exactly 4 options.
3. One correct answer (matching one of the options).
4. A brief explanation of why the answer is correct.

Format the output as a JSON list of objects with keys: "id", "question", "options", "correct_answer", "explanation".
Example: [{ "id": 1, "question": "...", "options": ["A", "B", "C", "D"], "correct_answer": "A", "explanation": "..." }]
Only return the JSON list, nothing else.`

const flashcardsInstruction = `Generate %d high-quality flashcards based on the provided context.
Each flashcard must have a 'front' (question/term) and a 'back' (answer/definition).
Focus on core concepts that are essential for exams.

Format the output as a JSON list of objects with keys: "front", "back".
Example: [{ "front": "What is HTML?", "back": "HyperText Markup Language..." }]
Only return the JSON list, nothing else.`

// Analyze synthesizes how the session's materials connect and proposes a
// learning path. Requires at least one uploaded file. If the model ignores
// the JSON shape, its prose comes back in the analysis field instead of an
// error.
func (s *Service) Analyze(ctx context.Context, session string) (*Analysis, error) {
	files, err := s.requireMaterials(ctx, session)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("running analysis", "session", session, "materials", len(files))

	contextText, err := s.retrieve(ctx, session, analyzeQuery, analyzeTopK)
	if err != nil {
		return nil, err
	}

	instruction := fmt.Sprintf(analyzeInstruction, strings.Join(files, ", "))
	result, err := s.generator.GenerateStructured(ctx, instruction, contextText)
	if err != nil {
		return nil, err
	}

	var parsed Analysis
	if err := extract.Decode(result.Raw, &parsed); err != nil {
		s.logger.Warn("analysis output not parseable, returning raw text",
			"session", session, "error", err)
		return &Analysis{Analysis: result.Raw, LearningPath: []string{}, Connections: []string{}}, nil
	}

	if parsed.Analysis == "" {
		parsed.Analysis = "No analysis generated."
	}
	if parsed.LearningPath == nil {
		parsed.LearningPath = []string{}
	}
	parsed.Connections = []string{}
	return &parsed, nil
}

// Concepts extracts a concept graph from the session's materials. Requires
// at least one uploaded file. Unparseable model output degrades to an empty
// graph.
func (s *Service) Concepts(ctx context.Context, session string) (*ConceptMap, error) {
	if _, err := s.requireMaterials(ctx, session); err != nil {
		return nil, err
	}

	contextText, err := s.retrieve(ctx, session, conceptsQuery, conceptsTopK)
	if err != nil {
		return nil, err
	}

	result, err := s.generator.GenerateStructured(ctx, conceptsInstruction, contextText)
	if err != nil {
		return nil, err
	}

	var parsed ConceptMap
	if err := extract.Decode(result.Raw, &parsed); err != nil {
		s.logger.Warn("concept output not parseable, returning empty graph",
			"session", session, "error", err)
		return &ConceptMap{Concepts: []Concept{}, Links: []ConceptLink{}}, nil
	}

	if parsed.Concepts == nil {
		parsed.Concepts = []Concept{}
	}
	if parsed.Links == nil {
		parsed.Links = []ConceptLink{}
	}
	return &parsed, nil
}

// Quiz generates count multiple-choice questions from the session's
// materials. count <= 0 selects the default. Requires at least one uploaded
// file; unparseable model output degrades to an empty quiz.
func (s *Service) Quiz(ctx context.Context, session string, count int) (*Quiz, error) {
	if count <= 0 {
		count = defaultQuizCount
	}
	if _, err := s.requireMaterials(ctx, session); err != nil {
		return nil, err
	}

	contextText, err := s.retrieve(ctx, session, quizQuery, quizTopK)
	if err != nil {
		return nil, err
	}

	result, err := s.generator.GenerateStructured(ctx, fmt.Sprintf(quizInstruction, count), contextText)
	if err != nil {
		return nil, err
	}

	questions, err := parseQuestions(result.Raw)
	if err != nil {
		s.logger.Warn("quiz output not parseable, returning empty quiz",
			"session", session, "error", err)
		return &Quiz{Questions: []Question{}}, nil
	}
	return &Quiz{Questions: questions}, nil
}

// Flashcards generates count study cards from the session's materials.
// count <= 0 selects the default. Requires at least one uploaded file;
// unparseable model output degrades to an empty set.
func (s *Service) Flashcards(ctx context.Context, session string, count int) (*FlashcardSet, error) {
	if count <= 0 {
		count = defaultFlashcardCount
	}
	if _, err := s.requireMaterials(ctx, session); err != nil {
		return nil, err
	}

	contextText, err := s.retrieve(ctx, session, flashcardsQuery, flashcardsTopK)
	if err != nil {
		return nil, err
	}

	result, err := s.generator.GenerateStructured(ctx, fmt.Sprintf(flashcardsInstruction, count), contextText)
	if err != nil {
		return nil, err
	}

	flashcards, err := parseFlashcards(result.Raw)
	if err != nil {
		s.logger.Warn("flashcard output not parseable, returning empty set",
			"session", session, "error", err)
		return &FlashcardSet{Flashcards: []Flashcard{}}, nil
	}
	return &FlashcardSet{Flashcards: flashcards}, nil
}

// parseQuestions accepts either a bare JSON list or an object wrapping one
// under "questions". JSON mode providers always wrap, the plain text
// fallback usually does not.
func parseQuestions(raw string) ([]Question, error) {
	var list []Question
	if err := extract.Decode(raw, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Questions []Question `json:"questions"`
	}
	if err := extract.Decode(raw, &wrapped); err != nil || wrapped.Questions == nil {
		return nil, fmt.Errorf("expected a JSON list of questions")
	}
	return wrapped.Questions, nil
}

func parseFlashcards(raw string) ([]Flashcard, error) {
	var list []Flashcard
	if err := extract.Decode(raw, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Flashcards []Flashcard `json:"flashcards"`
	}
	if err := extract.Decode(raw, &wrapped); err != nil || wrapped.Flashcards == nil {
		return nil, fmt.Errorf("expected a JSON list of flashcards")
	}
	return wrapped.Flashcards, nil
}
