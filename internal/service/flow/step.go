package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainvalet/chainvalet/internal/channel"
	"github.com/chainvalet/chainvalet/internal/service/dialog"
)

// Definition is a static, ordered flow: the same sequence of steps runs for
// every conversation that starts it.
type Definition struct {
	ID              string
	RequiresSession bool
	// GuardMinBalance runs the deploy balance check before step 0.
	GuardMinBalance bool
	Steps           []Step
}

// Step is one unit of a flow. A step either completes synchronously or
// suspends until the conversation's next reply.
type Step interface {
	run(ctx context.Context, rc *run) error
}

// promptStep sends a prompt and collects one validated free-text reply.
// Invalid replies re-prompt without advancing the flow.
type promptStep struct {
	field    string
	prompt   string
	validate func(string) error
}

func (s promptStep) run(ctx context.Context, rc *run) error {
	if v, ok := rc.collected[s.field]; ok {
		// Prefilled from the command arguments; still validated, and
		// normalized exactly like an interactive reply.
		if err := s.validate(v); err != nil {
			rc.sendText(ctx, fmt.Sprintf("❌ %v", err))
			return errHandled
		}
		rc.collected[s.field] = strings.TrimSpace(v)
		return nil
	}

	text := s.prompt
	for {
		rc.sendText(ctx, text)
		reply, err := rc.engine.dialogs.Await(ctx, rc.conversationID, dialog.KindText)
		if err != nil {
			return err
		}
		if err := s.validate(reply); err != nil {
			text = fmt.Sprintf("❌ %v\n\n%s", err, s.prompt)
			continue
		}
		rc.collected[s.field] = strings.TrimSpace(reply)
		return nil
	}
}

// choiceStep renders a menu and collects one selection. Unknown selections
// re-render the same menu with an error annotation.
type choiceStep struct {
	field   string
	prompt  string
	options func(ctx context.Context, rc *run) ([][]channel.Option, error)
}

func (s choiceStep) run(ctx context.Context, rc *run) error {
	rows, err := s.options(ctx, rc)
	if err != nil {
		return err
	}

	if v, ok := rc.collected[s.field]; ok {
		if !optionExists(rows, v) {
			rc.sendText(ctx, fmt.Sprintf("❌ Unknown option %q.", v))
			return errHandled
		}
		return nil
	}

	messageID, err := rc.engine.ch.SendMenu(ctx, rc.conversationID, s.prompt, rows)
	if err != nil {
		return err
	}
	for {
		selection, err := rc.engine.dialogs.Await(ctx, rc.conversationID, dialog.KindSelection)
		if err != nil {
			return err
		}
		if optionExists(rows, selection) {
			rc.collected[s.field] = selection
			return nil
		}
		annotated := fmt.Sprintf("❌ Unknown option. %s", s.prompt)
		if err := rc.engine.ch.EditMenu(ctx, rc.conversationID, messageID, annotated, rows); err != nil {
			return err
		}
	}
}

func optionExists(rows [][]channel.Option, data string) bool {
	for _, row := range rows {
		for _, opt := range row {
			if opt.Data == data {
				return true
			}
		}
	}
	return false
}

// confirmStep is the mandatory gate before any state-mutating action: only a
// case-insensitive "confirm" proceeds, anything else aborts with zero side
// effects.
type confirmStep struct {
	summary func(rc *run) string
}

func (s confirmStep) run(ctx context.Context, rc *run) error {
	text := `Reply "confirm" to proceed. Anything else cancels.`
	if s.summary != nil {
		text = s.summary(rc) + "\n\n" + text
	}
	rc.sendText(ctx, text)

	reply, err := rc.engine.dialogs.Await(ctx, rc.conversationID, dialog.KindText)
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(reply), "confirm") {
		rc.sendText(ctx, "🚫 Operation cancelled. Nothing was submitted.")
		return errUserCancelled
	}
	return nil
}

// actionStep performs the flow's single ledger interaction.
type actionStep struct {
	fn func(ctx context.Context, rc *run) error
}

func (s actionStep) run(ctx context.Context, rc *run) error {
	return s.fn(ctx, rc)
}
