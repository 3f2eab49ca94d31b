// Package style converts small markup templates (<hit>, <del>, <title>, <url>)
// into output for a particular display: HTML, an ANSI terminal, or plain text.
package style

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Placeholder is the token replaced by content in a converted template.
const Placeholder = "*"

// Mode selects the output flavour of a Style.
type Mode string

const (
	ModeHTML    Mode = "html"
	ModeConsole Mode = "console"
	ModePlain   Mode = "plain"
)

// ParseMode maps a configuration value onto a Mode. "ignore" is accepted as an
// alias of plain.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html":
		return ModeHTML, nil
	case "console":
		return ModeConsole, nil
	case "plain", "ignore", "":
		return ModePlain, nil
	default:
		return "", fmt.Errorf("unknown style mode %q: use html, console or plain", s)
	}
}

// Renderer is the markup capability the presentation layer depends on.
type Renderer interface {
	// Convert renders every known tag in template for the target display.
	Convert(template string) string
	// LineBreak separates the two halves of a split snippet.
	LineBreak() string
	// Separator joins proposal label terms without allowing a wrap.
	Separator() string
}

var tagPattern = regexp.MustCompile(`<(/?)([a-z]+)>`)

type htmlTag struct{ open, close string }

var htmlTags = map[string]htmlTag{
	"hit":   {`<span class="hit">`, `</span>`},
	"del":   {`<del>`, `</del>`},
	"title": {`<span class="title">`, `</span>`},
	"url":   {`<span class="url">`, `</span>`},
}

var consoleTags = map[string]lipgloss.Style{
	"hit":   lipgloss.NewStyle().Bold(true).Underline(true),
	"del":   lipgloss.NewStyle().Strikethrough(true).Faint(true),
	"title": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
	"url":   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
}

// Style implements Renderer for one Mode.
type Style struct {
	mode Mode
}

// New returns a Style for mode.
func New(mode Mode) *Style {
	return &Style{mode: mode}
}

// Mode returns the style's output mode.
func (s *Style) Mode() Mode { return s.mode }

// Convert renders template. Unknown tags are copied through untouched and an
// unclosed tag is closed at the end of the template.
func (s *Style) Convert(template string) string {
	type frame struct {
		tag string
		buf strings.Builder
	}
	stack := []*frame{{}}
	top := func() *frame { return stack[len(stack)-1] }

	last := 0
	for _, m := range tagPattern.FindAllStringSubmatchIndex(template, -1) {
		top().buf.WriteString(template[last:m[0]])
		last = m[1]
		closing := template[m[2]:m[3]] == "/"
		tag := template[m[4]:m[5]]
		if !s.known(tag) {
			top().buf.WriteString(template[m[0]:m[1]])
			continue
		}
		if !closing {
			stack = append(stack, &frame{tag: tag})
			continue
		}
		if len(stack) == 1 || top().tag != tag {
			continue
		}
		f := top()
		stack = stack[:len(stack)-1]
		top().buf.WriteString(s.wrap(f.tag, f.buf.String()))
	}
	top().buf.WriteString(template[last:])
	for len(stack) > 1 {
		f := top()
		stack = stack[:len(stack)-1]
		top().buf.WriteString(s.wrap(f.tag, f.buf.String()))
	}
	return stack[0].buf.String()
}

// Wrap renders text inside tag; it is Convert("<tag>*</tag>") with the
// placeholder replaced by text.
func (s *Style) Wrap(tag, text string) string {
	return strings.Replace(s.Convert("<"+tag+">"+Placeholder+"</"+tag+">"), Placeholder, text, 1)
}

// LineBreak implements Renderer.
func (s *Style) LineBreak() string {
	if s.mode == ModeHTML {
		return "<br/>"
	}
	return "\n"
}

// Separator implements Renderer.
func (s *Style) Separator() string {
	if s.mode == ModeHTML {
		return "&nbsp;"
	}
	return " "
}

func (s *Style) known(tag string) bool {
	_, ok := htmlTags[tag]
	return ok
}

func (s *Style) wrap(tag, content string) string {
	switch s.mode {
	case ModeHTML:
		t := htmlTags[tag]
		return t.open + content + t.close
	case ModeConsole:
		return consoleTags[tag].Render(content)
	default:
		return content
	}
}
