package agent

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// maxCalls bounds the function calls answered for a single question.
const maxCalls = 8

// chat is the part of *genai.Chat the experts use.
type chat interface {
	Send(ctx context.Context, parts ...*genai.Part) (*genai.GenerateContentResponse, error)
}

// Expert represent a chat with a model that can call back into Go functions.
type Expert struct {
	Name      string
	ModelName string
	Config    *genai.GenerateContentConfig
	Library   Library
	chat      chat
}

// Start opens the chat session.
func (e *Expert) Start(ctx context.Context, client *genai.Client) error {
	c, err := client.Chats.Create(ctx, e.ModelName, e.Config, nil)
	if err != nil {
		return err
	}
	e.chat = c
	return nil
}

// Ask sends parts and answers the function calls of the model until it
// returns a real response.
func (e *Expert) Ask(ctx context.Context, parts ...*genai.Part) (*genai.Content, error) {
	if e.chat == nil {
		return nil, errors.New("expert " + e.Name + " not started")
	}
	for range maxCalls {
		resp, err := e.chat.Send(ctx, parts...)
		if err != nil {
			return nil, err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return nil, fmt.Errorf("no response from expert %s", e.Name)
		}
		content := resp.Candidates[0].Content

		var calls []*genai.Part
		for _, p := range content.Parts {
			if p.FunctionCall == nil {
				continue
			}
			if e.Library == nil {
				return nil, fmt.Errorf("expert %s doesn't know how to make function calls", e.Name)
			}
			calls = append(calls, &genai.Part{FunctionResponse: e.Library(ctx, p.FunctionCall)})
		}
		if len(calls) == 0 {
			return content, nil
		}
		// Ask again with the responses it asked for.
		parts = calls
	}
	return nil, fmt.Errorf("expert %s made more than %d function calls", e.Name, maxCalls)
}

// Text concatenates the text parts of c.
func Text(c *genai.Content) string {
	var s string
	for _, p := range c.Parts {
		s += p.Text
	}
	return s
}
