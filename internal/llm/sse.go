package llm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// sseHandler receives the payload of one "data:" line. It returns the text
// delta to forward (possibly empty), whether the stream is finished, and a
// provider-reported error.
type sseHandler func(data string) (delta string, done bool, err error)

// streamSSE issues req and forwards decoded deltas until the body ends, the
// handler reports done, or ctx is cancelled. Both channels are closed on
// return; at most one error is sent.
func streamSSE(ctx context.Context, httpClient *http.Client, req *http.Request, vendor string, handle sseHandler) (<-chan string, <-chan error) {
	contentCh := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(contentCh)
		defer close(errCh)

		req.Header.Set("Accept", "text/event-stream")
		resp, err := httpClient.Do(req)
		if err != nil {
			errCh <- fmt.Errorf("%s stream request failed: %w", vendor, err)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			errCh <- fmt.Errorf("%s API returned status %d: %s", vendor, resp.StatusCode, string(body))
			return
		}

		// Closing the body unblocks the scanner when ctx ends mid-read.
		stop := context.AfterFunc(ctx, func() { _ = resp.Body.Close() })
		defer stop()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			if data == "[DONE]" {
				return
			}

			delta, done, herr := handle(data)
			if herr != nil {
				errCh <- fmt.Errorf("%s stream error: %w", vendor, herr)
				return
			}
			if delta != "" {
				select {
				case contentCh <- delta:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
			if done {
				return
			}
		}
		if ctx.Err() != nil {
			errCh <- ctx.Err()
			return
		}
		if err := scanner.Err(); err != nil {
			errCh <- fmt.Errorf("%s stream read: %w", vendor, err)
		}
	}()

	return contentCh, errCh
}

// stripFences removes a surrounding markdown code fence from model output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
