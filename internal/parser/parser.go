// Package parser extracts frontmatter, wikilinks, and tags from Markdown content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// WikiLink is one [[target#Heading#Sub|alias]] or [[target#^label|alias]]
// occurrence.
type WikiLink struct {
	// Raw is the whole match, brackets included.
	Raw     string
	Target  string
	Heading []string
	Label   string
	Alias   string
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	// HasFrontmatter is false when the file has no valid YAML block.
	HasFrontmatter bool
	Body           string
	Links          []WikiLink
	Tags           []string
	Title          string
}

// Parse extracts frontmatter, body, wikilinks, and tags from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, ok := splitFrontmatter(data)

	return &Result{
		Frontmatter:    fm,
		HasFrontmatter: ok,
		Body:           body,
		Links:          extractLinks(body),
		Tags:           extractTags(body, fm),
		Title:          deriveTitle(fm, body),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, bool) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), false
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), false
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	fm := map[string]interface{}{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: the whole file is body.
		return nil, string(data), false
	}

	return fm, body, true
}

// ParseWikiLink splits the inside of a [[...]] into its parts.
func ParseWikiLink(inner string) WikiLink {
	wl := WikiLink{Raw: "[[" + inner + "]]"}

	target := inner
	if i := strings.Index(inner, "|"); i >= 0 {
		target = inner[:i]
		wl.Alias = strings.TrimSpace(inner[i+1:])
	}

	if i := strings.Index(target, "#"); i >= 0 {
		anchor := target[i+1:]
		target = target[:i]
		if strings.HasPrefix(anchor, "^") {
			wl.Label = strings.TrimSpace(anchor[1:])
		} else {
			for _, h := range strings.Split(anchor, "#") {
				if h = strings.TrimSpace(h); h != "" {
					wl.Heading = append(wl.Heading, h)
				}
			}
		}
	}
	wl.Target = strings.TrimSpace(target)
	return wl
}

// extractLinks returns wikilinks in order of appearance, dropping exact
// duplicates and links with no target.
func extractLinks(body string) []WikiLink {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []WikiLink
	for _, m := range matches {
		wl := ParseWikiLink(m[1])
		if wl.Target == "" {
			continue
		}
		if _, ok := seen[wl.Raw]; ok {
			continue
		}
		seen[wl.Raw] = struct{}{}
		out = append(out, wl)
	}
	return out
}

// ReplaceLinks rewrites every wikilink in body with the output of fn.
func ReplaceLinks(body string, fn func(WikiLink) string) string {
	return wikilinkRe.ReplaceAllStringFunc(body, func(match string) string {
		wl := ParseWikiLink(match[2 : len(match)-2])
		if wl.Target == "" {
			return match
		}
		return fn(wl)
	})
}

// StringList reads a YAML list (or a single string) from the frontmatter.
func StringList(fm map[string]interface{}, key string) []string {
	var out []string
	switch v := fm[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// extractTags collects tags from the frontmatter "tags" field and inline
// #tags in the body.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}

	for _, t := range StringList(fm, "tags") {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if t, ok := fm["title"].(string); ok && t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
