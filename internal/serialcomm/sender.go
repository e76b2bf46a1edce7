package serialcomm

import (
	"encoding/json"
	"fmt"
)

// Encode serializes cmd to the JSON text sent on the wire, without a trailing delimiter
func Encode(cmd Command) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encoding %s command: %w", cmd.Command, err)
	}
	return data, nil
}

// Chunks splits data into consecutive slices of at most size bytes.
// The slices share data's backing array.
func Chunks(data []byte, size int) [][]byte {
	if size <= 0 {
		size = MaxChunkSize
	}

	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for i := 0; i < len(data); i += size {
		end := i + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[i:end])
	}
	return chunks
}
