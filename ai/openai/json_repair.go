// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import "strings"

// repairJSON fixes the mistakes models make most often when asked for a
// notes object: prose around the object, keys missing their opening quote
// (`, summary": ...`) and trailing commas before a closing bracket.
// String contents are never modified.
func repairJSON(s string) string {
	return dropTrailingCommas(quoteKeys(outermostObject(s)))
}

// outermostObject returns s from its first '{' to its last '}', or s when
// there is no such pair.
func outermostObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// quoteKeys adds the missing opening quote to keys written as `key":`
// directly after '{' or ','.
func quoteKeys(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)
	inString := false

	for i := 0; i < len(in); i++ {
		ch := in[i]
		out = append(out, ch)

		if inString {
			if ch == '\\' && i+1 < len(in) {
				i++
				out = append(out, in[i])
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			continue
		}
		if ch != '{' && ch != ',' {
			continue
		}

		j := i + 1
		for j < len(in) && isSpace(in[j]) {
			j++
		}
		k := j
		for k < len(in) && (isLetter(in[k]) || in[k] == '_') {
			k++
		}
		if k == j || k+1 >= len(in) || in[k] != '"' || in[k+1] != ':' {
			continue
		}
		out = append(out, in[i+1:j]...)
		out = append(out, '"')
		out = append(out, in[j:k+1]...)
		i = k
	}
	return string(out)
}

// dropTrailingCommas removes a comma followed only by whitespace and a
// closing '}' or ']'.
func dropTrailingCommas(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in))
	inString := false

	for i := 0; i < len(in); i++ {
		ch := in[i]
		if inString {
			out = append(out, ch)
			if ch == '\\' && i+1 < len(in) {
				i++
				out = append(out, in[i])
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
		}
		if ch == ',' {
			j := i + 1
			for j < len(in) && isSpace(in[j]) {
				j++
			}
			if j < len(in) && (in[j] == '}' || in[j] == ']') {
				continue
			}
		}
		out = append(out, ch)
	}
	return string(out)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
