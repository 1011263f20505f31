// Package jsonpos converts byte offsets in JSON documents to line/column
// positions for error reporting.
package jsonpos

import "encoding/json"

// Position returns the 1-based line and column of the given byte offset
// within data. Offsets past the end of data report the position after the
// last byte.
func Position(data []byte, offset int64) (line, column int) {
	line, column = 1, 1
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

// Offset extracts the byte offset from a json.SyntaxError or
// json.UnmarshalTypeError. It returns -1 for other error types.
func Offset(err error) int64 {
	switch e := err.(type) {
	case *json.SyntaxError:
		return e.Offset
	case *json.UnmarshalTypeError:
		return e.Offset
	}
	return -1
}
