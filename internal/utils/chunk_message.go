package utils

import (
	"strings"
	"unicode/utf8"
)

// ChunkMessage splits message into pieces of at most chunkSize bytes, cutting
// after the last newline in range when there is one and never inside a rune.
func ChunkMessage(message string, chunkSize int) []string {
	if len(message) <= chunkSize {
		return []string{message}
	}

	var chunks []string
	for len(message) > chunkSize {
		end := chunkSize
		if nl := strings.LastIndexByte(message[:end], '\n'); nl > 0 {
			end = nl + 1
		} else {
			for end > 0 && !utf8.RuneStart(message[end]) {
				end--
			}
			if end == 0 {
				end = chunkSize
			}
		}
		chunks = append(chunks, message[:end])
		message = message[end:]
	}
	if message != "" {
		chunks = append(chunks, message)
	}
	return chunks
}
