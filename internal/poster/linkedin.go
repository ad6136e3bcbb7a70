package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type linkedinProfile struct {
	ID string `json:"id"`
}

type linkedinShareResponse struct {
	ID string `json:"id"`
}

// postToLinkedIn publishes via the LinkedIn UGC API: resolve the member
// profile, then create a public share.
func (p *Poster) postToLinkedIn(ctx context.Context, title, body string) PostResult {
	if p.linkedinToken == "" {
		result := PostResult{
			Platform:     "linkedin",
			ErrorMessage: "LinkedIn access token not configured",
		}
		p.logAttempt(result, body, title)
		return result
	}

	result := p.doLinkedInPost(ctx, body)
	p.logAttempt(result, body, title)
	return result
}

func (p *Poster) doLinkedInPost(ctx context.Context, body string) PostResult {
	fail := func(msg string) PostResult {
		return PostResult{Platform: "linkedin", ErrorMessage: msg}
	}

	profileID, err := p.linkedinProfileID(ctx)
	if err != nil {
		return fail(fmt.Sprintf("failed to get LinkedIn profile: %v", err))
	}

	payload := map[string]any{
		"author":         "urn:li:person:" + profileID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]any{"text": body},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fail(fmt.Sprintf("encode share payload: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.linkedinBaseURL+"/v2/ugcPosts", bytes.NewReader(encoded))
	if err != nil {
		return fail(err.Error())
	}
	p.setLinkedInHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fail(fmt.Sprintf("LinkedIn request failed: %v", err))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return fail(fmt.Sprintf("LinkedIn API error: %s", string(raw)))
	}

	var share linkedinShareResponse
	if err := json.Unmarshal(raw, &share); err != nil {
		return fail(fmt.Sprintf("decode share response: %v", err))
	}

	posted := p.now()
	return PostResult{
		Platform: "linkedin",
		Success:  true,
		PostID:   share.ID,
		PostedAt: &posted,
	}
}

func (p *Poster) linkedinProfileID(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.linkedinBaseURL+"/v2/people/~", nil)
	if err != nil {
		return "", err
	}
	p.setLinkedInHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}

	var profile linkedinProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", err
	}
	return profile.ID, nil
}

func (p *Poster) setLinkedInHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.linkedinToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
}
