package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// token is one word of an assembly line.
type token struct {
	text   string
	quoted bool // a "string" literal; text is unquoted
}

// tokenize splits a line into tokens, dropping any trailing comment. # and
// ; start a comment only at the beginning of a word, so names such as
// core#define_method stay intact.
func tokenize(line string) ([]token, error) {
	var out []token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == ',':
			i++
		case c == '#' || c == ';':
			return out, nil
		case c == '"':
			end := i + 1
			for end < len(line) && line[end] != '"' {
				if line[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(line) {
				return nil, fmt.Errorf("unterminated string")
			}
			s, err := strconv.Unquote(line[i : end+1])
			if err != nil {
				return nil, fmt.Errorf("bad string %s: %v", line[i:end+1], err)
			}
			out = append(out, token{text: s, quoted: true})
			i = end + 1
		default:
			end := i
			for end < len(line) && !strings.ContainsRune(" \t\r,\"", rune(line[end])) {
				end++
			}
			out = append(out, token{text: line[i:end]})
			i = end
		}
	}
	return out, nil
}
