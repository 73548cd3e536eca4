// Package testutil provides test helpers: a scripted command channel for
// unit tests and Redis helpers for integration tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
)

// ScriptedChannel answers commands from a fixed table and records every
// command it receives, in order.
type ScriptedChannel struct {
	Responses map[string]string
	Errors    map[string]error
	Strict    bool // unknown commands return an error instead of ""
	Sent      []string
}

// NewScriptedChannel creates a channel answering from responses.
func NewScriptedChannel(responses map[string]string) *ScriptedChannel {
	return &ScriptedChannel{
		Responses: responses,
		Errors:    make(map[string]error),
	}
}

// Send records command and returns its canned response.
func (c *ScriptedChannel) Send(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.Sent = append(c.Sent, command)
	if err, ok := c.Errors[command]; ok {
		return "", err
	}
	if out, ok := c.Responses[command]; ok {
		return out, nil
	}
	if c.Strict {
		return "", fmt.Errorf("unscripted command %q", command)
	}
	return "", nil
}

// SentMatching returns the recorded commands that start with prefix.
func (c *ScriptedChannel) SentMatching(prefix string) []string {
	var out []string
	for _, cmd := range c.Sent {
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, cmd)
		}
	}
	return out
}

// Reset clears the recorded commands.
func (c *ScriptedChannel) Reset() {
	c.Sent = nil
}
