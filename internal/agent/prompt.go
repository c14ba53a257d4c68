package agent

import (
	"encoding/json"
	"fmt"

	"github.com/ashureev/wpassist/internal/digest"
)

const systemInstruction = `You are an AI assistant for a WordPress website.
You can see the site's latest posts and pages.
Answer the user's question using ONLY the provided website content.
When the question matches any content, explain why and recommend those posts or pages by ID.
Reply in JSON.`

func buildPrompt(query string, entries []digest.Entry) (string, error) {
	content, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encode website content: %w", err)
	}
	return fmt.Sprintf("USER QUERY: %q\nWEBSITE CONTENT: %s", query, content), nil
}
