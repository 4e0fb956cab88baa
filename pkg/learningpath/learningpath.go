// Package learningpath turns the free-text learning path a mentor writes for a
// mentee into modules and courses.
//
// The text is loosely structured:
//
//	🔹 MÓDULO 1 – Fundamentos de Dados
//	Foco: SQL e modelagem
//	SQL para Iniciantes ➤ gratuito
//	https://example.com/sql
//
// Parsing is heuristic and never fails; lines it cannot place are ignored.
package learningpath

import (
	"regexp"
	"strings"
)

// DefaultEmoji is used for headers that do not start with a marker emoji.
const DefaultEmoji = "🔹"

const (
	moduleKeyword = "MÓDULO"
	focusPrefix   = "foco:"
	noteMarker    = "➤"
)

var (
	moduleEmojis = []string{"🔹", "🔸", "🔷", "🔶"}

	titlePattern = regexp.MustCompile(`MÓDULO\s*\d+\s*[–-]\s*(.+)`)
	urlPattern   = regexp.MustCompile(`https?://\S+`)
	focusPattern = regexp.MustCompile(`(?i)^foco:\s*`)
)

// Module is one block of the learning path.
type Module struct {
	Title   string   `json:"title"`
	Emoji   string   `json:"emoji"`
	Focus   string   `json:"focus"`
	Courses []Course `json:"courses"`
}

// Course is a recommended course. URL is empty when none was given.
type Course struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Note string `json:"note,omitempty"`
}

// Parse splits text into modules. Lines before the first module header are
// dropped.
func Parse(text string) []Module {
	var (
		modules []Module
		current *Module
	)

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		switch {
		case isHeader(line):
			if current != nil {
				modules = append(modules, *current)
			}
			current = newModule(line)

		case strings.HasPrefix(strings.ToLower(line), focusPrefix):
			if current != nil {
				current.Focus = strings.TrimSpace(focusPattern.ReplaceAllString(line, ""))
			}

		case strings.Contains(line, "http"):
			if current != nil {
				current.addLinkLine(line)
			}

		case current != nil:
			current.addCourseLine(line)
		}
	}

	if current != nil {
		modules = append(modules, *current)
	}

	return modules
}

func isHeader(line string) bool {
	return strings.Contains(line, moduleKeyword) || leadingEmoji(line) != ""
}

func leadingEmoji(line string) string {
	for _, e := range moduleEmojis {
		if strings.HasPrefix(line, e) {
			return e
		}
	}
	return ""
}

func newModule(line string) *Module {
	emoji := leadingEmoji(line)

	title := ""
	if m := titlePattern.FindStringSubmatch(line); m != nil {
		title = strings.TrimSpace(m[1])
	} else {
		title = strings.TrimSpace(strings.TrimPrefix(line, emoji))
	}

	if emoji == "" {
		emoji = DefaultEmoji
	}

	return &Module{
		Title:   title,
		Emoji:   emoji,
		Courses: []Course{},
	}
}

// addLinkLine handles a line mentioning a URL. A line holding only the URL
// belongs to the course named on the line before it.
func (m *Module) addLinkLine(line string) {
	url := urlPattern.FindString(line)
	name := strings.TrimSpace(strings.Replace(line, url, "", 1))

	if name == "" && len(m.Courses) > 0 {
		m.Courses[len(m.Courses)-1].URL = url
		return
	}

	m.Courses = append(m.Courses, Course{Name: name, URL: url})
}

// addCourseLine handles a plain course line, with an optional note after the
// note marker.
func (m *Module) addCourseLine(line string) {
	name, note, hasNote := strings.Cut(line, noteMarker)
	name = strings.TrimSpace(name)
	if hasNote {
		note, _, _ = strings.Cut(note, noteMarker)
		note = strings.TrimSpace(note)
	}

	if name == "" || strings.Contains(strings.ToLower(name), "módulo") {
		return
	}

	m.Courses = append(m.Courses, Course{Name: name, Note: note})
}
