// Package ai maps free-form chat text onto assistant commands with an LLM.
// The interpreter is optional; the dispatcher works without it.
package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/chainvalet/chainvalet/internal/config"
)

const systemPrompt = `You translate a user's chat message about their crypto wallet
into exactly one of these commands:

/start /help /createwallet /importwallet /disconnect /switchnetwork
/createtoken /mytokens /transfertoken /sendfunds /tokeninfo <token>
/whalealerts /newsreport /subscribewhales /unsubscribewhales /ens <name> /ensregister /ensexpiry

Reply with the single best-matching command and nothing else.
If no command fits, reply with the single word NONE.`

// Interpreter turns natural language into a slash command.
type Interpreter struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewInterpreter builds the interpreter from the Ark model configuration.
func NewInterpreter(ctx context.Context, cfg config.AIConfig) (*Interpreter, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile interpreter chain: %w", err)
	}

	return &Interpreter{chain: runnable}, nil
}

// Interpret returns the command the message maps to, or ok=false when the
// model found no match.
func (i *Interpreter) Interpret(ctx context.Context, text string) (string, bool, error) {
	response, err := i.chain.Invoke(ctx, map[string]any{
		"system": systemPrompt,
		"query":  text,
	})
	if err != nil {
		return "", false, fmt.Errorf("run interpreter chain: %w", err)
	}

	command := strings.TrimSpace(response.Content)
	if command == "" || strings.EqualFold(command, "NONE") || !strings.HasPrefix(command, "/") {
		return "", false, nil
	}

	log.Printf("[ai] interpreted %q as %q", text, command)
	return command, true, nil
}
