package llm

import (
	"bytes"
	"encoding/json"
)

// completeJSON closes an incomplete JSON document so a prefix of a streamed
// object can be decoded as a snapshot: open strings are terminated, dangling
// keys and colons get a null value, trailing commas are dropped, and open
// brackets are closed in order. Returns false when the prefix cannot be
// turned into valid JSON (e.g. it ends mid-escape).
func completeJSON(raw []byte) ([]byte, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false
	}

	if cand, ok := repairJSON(trimmed); ok {
		return cand, true
	}

	// The prefix may end in a truncated literal or number ("tru", "12.").
	// If we are outside a string, drop the trailing token and retry.
	_, inString, _ := scanJSON(trimmed)
	if inString {
		return nil, false
	}
	end := len(trimmed)
	for end > 0 && isTokenByte(trimmed[end-1]) {
		end--
	}
	if end == len(trimmed) || end == 0 {
		return nil, false
	}
	return repairJSON(trimmed[:end])
}

type jsonFrame struct {
	object      bool
	expectValue bool
}

// scanJSON walks the prefix tracking open containers and string state.
func scanJSON(b []byte) (stack []jsonFrame, inString, escaped bool) {
	for _, c := range b {
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, jsonFrame{object: true})
		case '[':
			stack = append(stack, jsonFrame{})
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case ':':
			if len(stack) > 0 && stack[len(stack)-1].object {
				stack[len(stack)-1].expectValue = true
			}
		case ',':
			if len(stack) > 0 && stack[len(stack)-1].object {
				stack[len(stack)-1].expectValue = false
			}
		}
	}
	return stack, inString, escaped
}

func repairJSON(b []byte) ([]byte, bool) {
	stack, inString, escaped := scanJSON(b)

	out := make([]byte, len(b), len(b)+len(stack)+8)
	copy(out, b)

	if escaped {
		// Ends mid-escape; drop the dangling backslash.
		out = out[:len(out)-1]
	}
	if inString {
		out = append(out, '"')
		// A bare string before the colon inside an object is a key.
		if len(stack) > 0 && stack[len(stack)-1].object && !stack[len(stack)-1].expectValue {
			out = append(out, []byte(`:null`)...)
		}
	}

	out = bytes.TrimRight(out, " \t\r\n")
	if len(out) > 0 {
		switch out[len(out)-1] {
		case ',':
			out = out[:len(out)-1]
		case ':':
			out = append(out, []byte("null")...)
		case '"':
			if !inString && len(stack) > 0 && stack[len(stack)-1].object && !stack[len(stack)-1].expectValue {
				out = append(out, []byte(`:null`)...)
			}
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].object {
			out = append(out, '}')
		} else {
			out = append(out, ']')
		}
	}

	if !json.Valid(out) {
		return nil, false
	}
	return out, true
}

func isTokenByte(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c == '.', c == '-', c == '+':
		return true
	}
	return false
}
