// Package parser extracts frontmatter, typed references, and tags from
// Markdown note content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jesrav/jesktop/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Parser extracts typed references from note content using a configurable
// pattern table.
type Parser struct {
	patterns []Pattern
}

// New builds a Parser from the given pattern sources.
func New(src PatternSources) (*Parser, error) {
	patterns, err := compilePatterns(src)
	if err != nil {
		return nil, err
	}
	return &Parser{patterns: patterns}, nil
}

// MustDefault returns a Parser with the built-in patterns. The defaults are
// known-good, so compilation cannot fail.
func MustDefault() *Parser {
	p, err := New(DefaultPatternSources())
	if err != nil {
		panic(err)
	}
	return p
}

// References returns every reference in content, in source order, with the
// raw target text exactly as written. Malformed or partial syntax simply
// does not match; it is never an error. External URLs are kept verbatim
// here and filtered at resolution time.
func (p *Parser) References(content string) []models.Reference {
	matches := scan(p.patterns, content)
	refs := make([]models.Reference, 0, len(matches))
	for _, m := range matches {
		target := m.target
		if m.kind == models.KindWikilink {
			// Aliases: [[Target|Alias]] -> Target.
			if i := strings.Index(target, "|"); i >= 0 {
				target = target[:i]
			}
			target = strings.TrimSpace(target)
			if target == "" {
				continue
			}
		} else {
			target = strings.TrimSpace(target)
			if target == "" {
				continue
			}
		}
		refs = append(refs, models.Reference{
			Kind:      m.kind,
			RawTarget: target,
			Position:  m.start,
		})
	}
	return refs
}

// Document holds the output of parsing a Markdown file.
type Document struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
	Tags        []string
}

// ParseDocument extracts frontmatter, body, title, and tags from raw
// Markdown bytes.
func ParseDocument(data []byte) (*Document, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	return &Document{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
		Tags:        extractTags(body, fm),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter — treat everything as body.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML — fall back to treating the whole file as body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// extractTags collects #tags from body and from the frontmatter "tags" field.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string

	if fm != nil {
		if raw, ok := fm["tags"]; ok {
			if list, ok := raw.([]interface{}); ok {
				for _, item := range list {
					s, ok := item.(string)
					if !ok {
						continue
					}
					s = strings.TrimSpace(s)
					if s == "" {
						continue
					}
					if _, dup := seen[s]; !dup {
						seen[s] = struct{}{}
						out = append(out, s)
					}
				}
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		t := m[1]
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}

	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// first H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
