package engine

import (
	"context"
	"log"

	"github.com/mlowery/ritual/internal/llm"
)

const chatSystemHeader = `You are a supportive habit coach inside a personal tracking app.
Answer using only the data below. Be concrete, brief, and encouraging; never invent
habits or history the user does not have.

`

// Fallback returned whenever the model collaborator is unavailable. The
// assistant must always hand back some text — analytics and chat failures
// never surface as errors to the user.
const chatFallback = "Sorry, I couldn't reach the assistant just now. Your habits are still being tracked — please try again in a moment."

// Chat assembles context for the query and asks the model collaborator.
// It always returns a response string; build or model failures are logged
// and replaced with a safe fallback.
func (a *Assembler) Chat(ctx context.Context, client llm.Client, userID, query string, opts ContextOpts) string {
	if client == nil {
		return chatFallback
	}

	system := chatSystemHeader
	qc, err := a.BuildContext(userID, query, opts)
	if err != nil {
		// Degrade to an uninformed but working assistant rather than failing.
		log.Printf("chat: context assembly failed for %s: %v", userID, err)
	} else {
		system += RenderPrompt(qc)
	}

	resp, err := client.Chat(ctx, system, query)
	if err != nil {
		log.Printf("chat: model call failed for %s: %v", userID, err)
		return chatFallback
	}
	if resp == nil || resp.Content == "" {
		return chatFallback
	}
	return resp.Content
}
