package rag

// Source identifies an uploaded file that contributed context to an answer.
type Source struct {
	Filename string `json:"filename"`
	Snippet  string `json:"snippet"`
}

// Answer is a generated response grounded in retrieved chunks.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Analysis is a cross-document synthesis with a suggested learning path.
type Analysis struct {
	Analysis     string   `json:"analysis"`
	LearningPath []string `json:"learning_path"`
	Connections  []string `json:"connections"`
}

// Concept is a key term extracted from the materials.
type Concept struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Importance int    `json:"importance"` // 1-10
}

// ConceptLink is a directed relationship between two extracted concepts.
type ConceptLink struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relationship string `json:"relationship"`
}

// ConceptMap is the extracted concept graph.
type ConceptMap struct {
	Concepts []Concept     `json:"concepts"`
	Links    []ConceptLink `json:"links"`
}

// Question is one multiple-choice quiz question.
type Question struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// Quiz is a generated set of questions.
type Quiz struct {
	Questions []Question `json:"questions"`
}

// Flashcard is one front/back study card.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// FlashcardSet is a generated set of flashcards.
type FlashcardSet struct {
	Flashcards []Flashcard `json:"flashcards"`
}

// Material is one uploaded file in a session.
type Material struct {
	Filename string `json:"filename"`
}
