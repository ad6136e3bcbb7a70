package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// tweetLimit is the hard per-post character limit.
	tweetLimit = 280
	// threadChunkLimit leaves headroom for the "i/n " numbering prefix.
	threadChunkLimit = 250
)

type tweetRequest struct {
	Text  string      `json:"text"`
	Reply *tweetReply `json:"reply,omitempty"`
}

type tweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// postToTwitter publishes body as a single tweet, or as a numbered
// reply-chain thread when it exceeds the per-post limit.
func (p *Poster) postToTwitter(ctx context.Context, title, body string) PostResult {
	if !p.twitter.Configured() {
		result := PostResult{
			Platform:     "twitter",
			ErrorMessage: "Twitter credentials not fully configured",
		}
		p.logAttempt(result, body, title)
		return result
	}

	if len(body) > tweetLimit {
		return p.postThread(ctx, title, body)
	}

	result := p.sendTweet(ctx, body, "")
	p.logAttempt(result, body, title)
	return result
}

// postThread posts the chunked body as a linked sequence. A failed
// chunk stops the thread; already posted chunks are not rolled back.
func (p *Poster) postThread(ctx context.Context, title, body string) PostResult {
	chunks := ChunkThread(body, threadChunkLimit)

	var first PostResult
	replyTo := ""
	for i, chunk := range chunks {
		result := p.sendTweet(ctx, chunk, replyTo)
		p.logAttempt(result, chunk, title)

		if !result.Success {
			if i == 0 {
				return result
			}
			first.ErrorMessage = fmt.Sprintf("thread tweet %d/%d failed: %s", i+1, len(chunks), result.ErrorMessage)
			first.Success = false
			return first
		}
		if i == 0 {
			first = result
		}
		replyTo = result.PostID
	}
	return first
}

func (p *Poster) sendTweet(ctx context.Context, text, replyTo string) PostResult {
	fail := func(msg string) PostResult {
		return PostResult{Platform: "twitter", ErrorMessage: msg}
	}

	payload := tweetRequest{Text: text}
	if replyTo != "" {
		payload.Reply = &tweetReply{InReplyToTweetID: replyTo}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fail(fmt.Sprintf("encode tweet: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.twitterBaseURL+"/2/tweets", bytes.NewReader(encoded))
	if err != nil {
		return fail(err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+p.twitter.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fail(fmt.Sprintf("Twitter request failed: %v", err))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return fail(fmt.Sprintf("Twitter API error: %s", string(raw)))
	}

	var tweet tweetResponse
	if err := json.Unmarshal(raw, &tweet); err != nil {
		return fail(fmt.Sprintf("decode tweet response: %v", err))
	}

	posted := p.now()
	return PostResult{
		Platform: "twitter",
		Success:  true,
		PostID:   tweet.Data.ID,
		PostedAt: &posted,
	}
}

// ChunkThread splits body into thread chunks: paragraphs are packed
// greedily into chunks at or under limit, in original order, and every
// chunk after the first carries an "i/n " numbering prefix when the
// thread has more than one chunk. A single paragraph longer than the
// limit becomes its own oversized chunk and is left for the platform
// to reject.
func ChunkThread(body string, limit int) []string {
	paragraphs := strings.Split(body, "\n\n")

	var chunks []string
	var current []string
	currentLen := 0

	for _, paragraph := range paragraphs {
		addition := len(paragraph)
		if currentLen > 0 {
			addition += 2 // joining blank line
		}
		if currentLen > 0 && currentLen+addition > limit {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			current = current[:0]
			currentLen = 0
			addition = len(paragraph)
		}
		current = append(current, paragraph)
		currentLen += addition
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}

	if len(chunks) > 1 {
		for i := 1; i < len(chunks); i++ {
			chunks[i] = fmt.Sprintf("%d/%d %s", i+1, len(chunks), chunks[i])
		}
	}
	return chunks
}
