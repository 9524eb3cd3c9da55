// Package prompts renders the generation prompts from embedded
// templates. Templates are compiled in so a deployment is never
// missing its prompt directory.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"math/rand"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// TourData is the input for the tour content prompt.
type TourData struct {
	LocationName    string
	City            string
	Country         string
	DurationMinutes int
	Interests       []string
	Language        string
	Style           string

	// Derived targets handed to the model.
	TargetWords int
	MinStops    int
	MaxStops    int
}

// Manager handles loading and rendering of prompt templates.
type Manager struct {
	root *template.Template
}

// NewManager parses the embedded templates.
func NewManager() (*Manager, error) {
	m := &Manager{}
	root := template.New("root").Funcs(template.FuncMap{
		"interests": interestsFunc,
		"pick":      pickFunc,
	})

	root, err := root.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	m.root = root
	return m, nil
}

// Render executes the named template with the provided data.
func (m *Manager) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.root.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// TourPrompt fills in the derived targets and renders the tour template.
func (m *Manager) TourPrompt(data TourData) (string, error) {
	if data.TargetWords == 0 {
		// Narration pace of roughly 150 words per minute.
		data.TargetWords = data.DurationMinutes * 150
	}
	if data.MinStops == 0 {
		data.MinStops = 3
	}
	if data.MaxStops == 0 {
		data.MaxStops = 5 + data.DurationMinutes/15
		if data.MaxStops > 10 {
			data.MaxStops = 10
		}
	}
	return m.Render("tour.tmpl", data)
}

// interestsFunc shuffles interests and returns them as a comma-separated
// string, so repeated generations for similar requests vary a little.
func interestsFunc(interests []string) string {
	if len(interests) == 0 {
		return "general history and culture"
	}
	shuffled := make([]string, len(interests))
	copy(shuffled, interests)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return strings.Join(shuffled, ", ")
}

// pickFunc selects one random option from a list separated by "|||".
// Usage: {{pick "Option A|||Option B|||Option C"}}
// Re-rolls on each template render.
func pickFunc(options string) string {
	parts := strings.Split(options, "|||")
	if len(parts) == 0 {
		return ""
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts[rand.Intn(len(parts))]
}
