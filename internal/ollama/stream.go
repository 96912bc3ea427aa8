package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ragchat/internal/logger"
)

// StreamChunk is one unit of a generation stream. A chunk with Err set is
// terminal; a closed channel without one means the stream completed cleanly.
type StreamChunk struct {
	Content string
	Err     error
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateFragment is one newline-delimited JSON line of the response.
type generateFragment struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate opens a streamed generation via POST /api/generate and relays
// fragments on the returned channel. Fragments that fail to parse are logged
// and skipped; they never abort the stream. The stream ends on a done
// fragment, on EOF, on a transport error, or when ctx is cancelled.
func (c *Client) Generate(ctx context.Context, model, prompt string) (<-chan StreamChunk, error) {
	payload, err := json.Marshal(generateRequest{Model: model, Prompt: prompt, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.streaming.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error opening generation stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("generate API returned status %d: %s", resp.StatusCode, string(body))
	}

	chunks := make(chan StreamChunk)

	go func() {
		defer resp.Body.Close()
		defer close(chunks)

		scanner := bufio.NewScanner(resp.Body)
		// Fragments can carry large response fields; grow the line buffer.
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			var fragment generateFragment
			if err := json.Unmarshal(line, &fragment); err != nil {
				logger.Log.WithError(err).Warn("Skipping malformed stream fragment")
				continue
			}

			if fragment.Done {
				return
			}
			if fragment.Response == "" {
				continue
			}

			select {
			case chunks <- StreamChunk{Content: fragment.Response}:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			select {
			case chunks <- StreamChunk{Err: fmt.Errorf("generation stream failed: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return chunks, nil
}
