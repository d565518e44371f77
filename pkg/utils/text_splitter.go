package utils

import "strings"

// SplitWords splits text into windows of 'chunkSize' words.
// Consecutive windows share 'overlap' words to preserve context at boundaries.
func SplitWords(text string, chunkSize int, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}
	if chunkSize <= 0 {
		return []string{strings.Join(words, " ")}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}

	return chunks
}
