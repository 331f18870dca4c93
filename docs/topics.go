// Package docs embeds the operator manual shown by "rbl topic".
package docs

import (
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"
)

//go:embed *.md
var docs embed.FS

// index is the topic listing the others; it is shown when no topic is given.
const index = "readme"

// GetTopic returns the content of a documentation topic. "*" returns every
// topic but the index.
func GetTopic(topic string) (string, error) {
	if topic == "*" {
		return GetTopics(topic)
	}
	content, err := docs.ReadFile(topic + ".md")
	if err != nil {
		return "", fmt.Errorf("topic %q not found, try \"rbl topic -l\": %w", topic, err)
	}
	return string(content), nil
}

// GetTopics returns the content of the topics, separated by a blank line.
func GetTopics(topics ...string) (string, error) {
	var expanded []string
	for _, t := range topics {
		if t != "*" {
			expanded = append(expanded, t)
			continue
		}
		all, err := GetAllTopics()
		if err != nil {
			return "", err
		}
		expanded = append(expanded, all...)
	}

	var b strings.Builder
	for _, t := range expanded {
		content, err := GetTopic(t)
		if err != nil {
			return "", err
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// GetAllTopics returns the sorted topic names, without the index.
func GetAllTopics() ([]string, error) {
	entries, err := fs.ReadDir(docs, ".")
	if err != nil {
		return nil, err
	}
	var topics []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".md")
		if e.IsDir() || !ok || name == index {
			continue
		}
		topics = append(topics, name)
	}
	slices.Sort(topics)
	return topics, nil
}
