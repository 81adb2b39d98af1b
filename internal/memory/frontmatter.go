package memory

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// frontmatter is the YAML header persisted at the top of every memory file.
type frontmatter struct {
	ID       string   `yaml:"id"`
	Type     string   `yaml:"type"`
	Title    string   `yaml:"title"`
	Tags     []string `yaml:"tags,omitempty"`
	Scope    string   `yaml:"scope"`
	Severity string   `yaml:"severity,omitempty"`
	Links    []string `yaml:"links,omitempty"`
	Created  string   `yaml:"created"`
	Updated  string   `yaml:"updated"`
}

// Render serialises a memory to its on-disk form: a YAML frontmatter block
// followed by the free-text body.
func Render(m *Memory) ([]byte, error) {
	fm := frontmatter{
		ID:       m.ID,
		Type:     string(m.Type),
		Title:    m.Title,
		Tags:     m.Tags,
		Scope:    string(m.Scope),
		Severity: string(m.Severity),
		Links:    m.Links,
		Created:  m.Created.UTC().Format(time.RFC3339),
		Updated:  m.Updated.UTC().Format(time.RFC3339),
	}

	header, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(frontmatterDelimiter)
	sb.WriteString("\n")
	sb.Write(header)
	sb.WriteString(frontmatterDelimiter)
	sb.WriteString("\n")
	if m.Content != "" {
		sb.WriteString("\n")
		sb.WriteString(strings.TrimRight(m.Content, "\n"))
		sb.WriteString("\n")
	}
	return []byte(sb.String()), nil
}

// Parse decodes an on-disk memory file. A file without both frontmatter
// delimiters or with invalid YAML returns ErrParse.
func Parse(data []byte) (*Memory, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, frontmatterDelimiter+"\n") {
		return nil, fmt.Errorf("%w: missing frontmatter open delimiter", ErrParse)
	}

	rest := text[len(frontmatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontmatterDelimiter)
	if end < 0 {
		return nil, fmt.Errorf("%w: missing frontmatter close delimiter", ErrParse)
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(rest[:end+1]), &fm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if fm.ID == "" || fm.Type == "" {
		return nil, fmt.Errorf("%w: frontmatter missing id or type", ErrParse)
	}

	body := rest[end+1+len(frontmatterDelimiter):]
	if idx := strings.Index(body, "\n"); idx >= 0 {
		body = body[idx+1:]
	} else {
		body = ""
	}

	m := &Memory{
		ID:       fm.ID,
		Type:     Type(fm.Type),
		Title:    fm.Title,
		Content:  strings.TrimSpace(body),
		Tags:     fm.Tags,
		Scope:    Scope(fm.Scope),
		Severity: Severity(fm.Severity),
		Links:    fm.Links,
		Created:  parseTimestamp(fm.Created),
		Updated:  parseTimestamp(fm.Updated),
	}
	return m, nil
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	layouts := []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
