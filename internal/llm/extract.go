package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	openrouter "github.com/revrost/go-openrouter"
)

type inlineCall struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

// ExtractToolCall finds a tool call the model wrote as plain text, e.g.
// {"name": "stock_check", "parameters": {"producto": "remera"}}. Objects are
// located by brace balancing; the first one with both keys wins.
func ExtractToolCall(text string) (ToolCall, bool) {
	if !strings.Contains(text, `"name"`) || !strings.Contains(text, `"parameters"`) {
		return ToolCall{}, false
	}
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end := matchingBrace(text, i)
		if end < 0 {
			continue
		}
		var call inlineCall
		if err := json.Unmarshal([]byte(text[i:end+1]), &call); err == nil && call.Name != "" && len(call.Parameters) > 0 {
			args := string(call.Parameters)
			if args == "null" {
				args = "{}"
			}
			return ToolCall{
				ID:   fmt.Sprintf("inline-%d", i),
				Type: openrouter.ToolTypeFunction,
				Function: openrouter.FunctionCall{
					Name:      call.Name,
					Arguments: args,
				},
			}, true
		}
	}
	return ToolCall{}, false
}

// matchingBrace returns the index of the brace closing the one at start,
// skipping braces inside JSON strings, or -1.
func matchingBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
