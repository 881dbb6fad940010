package types

import "fmt"

// Tab is one of the assistant's pages. The set is closed; every switch over
// Tab in this module is exhaustive.
type Tab int

const (
	TabHome Tab = iota
	TabChat
	TabQA
	TabAudio
	TabExam
	TabSimplify
)

var tabSlugs = map[Tab]string{
	TabHome:     "home",
	TabChat:     "chat",
	TabQA:       "qa",
	TabAudio:    "audio",
	TabExam:     "exam",
	TabSimplify: "simplify",
}

var tabTitles = map[Tab]string{
	TabHome:     "🏠 Home",
	TabChat:     "💬 Chatbot Specialist",
	TabQA:       "📝 File Q&A",
	TabAudio:    "🎧 Audio Explanation Generator",
	TabExam:     "📚 Practice Exam Generator",
	TabSimplify: "📝 Text Simplifier",
}

// Tabs returns every tab in sidebar order.
func Tabs() []Tab {
	return []Tab{TabHome, TabChat, TabQA, TabAudio, TabExam, TabSimplify}
}

func ParseTab(slug string) (Tab, error) {
	for t, s := range tabSlugs {
		if s == slug {
			return t, nil
		}
	}
	return TabHome, fmt.Errorf("unknown tab %q", slug)
}

func (t Tab) Slug() string  { return tabSlugs[t] }
func (t Tab) Title() string { return tabTitles[t] }
func (t Tab) String() string {
	if s, ok := tabSlugs[t]; ok {
		return s
	}
	return fmt.Sprintf("tab(%d)", int(t))
}

// NeedsCredential reports whether the tab calls the generation API.
func (t Tab) NeedsCredential() bool { return t != TabHome }

// Difficulty is the practice exam level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

func Difficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

func ParseDifficulty(s string) (Difficulty, error) {
	for _, d := range Difficulties() {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}
