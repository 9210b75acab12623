package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/twentyq/internal/game"
	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// promptKind tells a console what is being asked.
type promptKind int

const (
	promptAnswer promptKind = iota // tree, refine or attribute question
	promptGuess
	promptName
	promptQuestion
	promptQuestionAnswer
	promptAgain
)

type prompt struct {
	kind      promptKind
	text      string
	feature   string // set for promptAnswer
	character string // set for promptGuess
}

// console is the player's side of the conversation.
type console interface {
	ask(p prompt) (string, error)
	say(format string, args ...any)
}

// terminal is a console over line-oriented text streams. ask returns io.EOF
// when input runs out.
type terminal struct {
	in  *bufio.Scanner
	out io.Writer
}

func (t *terminal) ask(p prompt) (string, error) {
	fmt.Fprintf(t.out, "%s ", p.text)
	if !t.in.Scan() {
		fmt.Fprintln(t.out)
		if err := t.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return t.in.Text(), nil
}

func (t *terminal) say(format string, args ...any) {
	fmt.Fprintf(t.out, format+"\n", args...)
}

func newPlayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play a game in the terminal",
		Long: `Think of an animal and answer yes or no. Type "back" to change the
previous answer. When the guess is wrong, tell twentyq what you had in mind
and give it a question that tells the two apart; it retrains before the next game.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.settings)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.sessions.Get(game.DefaultSessionID)
			if err != nil {
				return err
			}
			p := &player{
				s: s,
				c: &terminal{in: bufio.NewScanner(cmd.InOrStdin()), out: cmd.OutOrStdout()},
			}
			return p.run()
		},
	}
}

// player drives one session from a console.
type player struct {
	s *game.Session
	c console
}

// run plays games until the player declines another or input ends.
func (p *player) run() error {
	for {
		if err := p.game(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line, err := p.c.ask(prompt{kind: promptAgain, text: "Play again? (yes/no)"})
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if v, err := types.ParseAnswer(line); err != nil || v == 0 {
			return nil
		}
	}
}

func (p *player) game() error {
	p.c.say("Think of an animal.")
	resp, err := p.s.Start()
	for err == nil {
		switch {
		case resp.Learned:
			p.c.say("Thanks! I will remember that.")
			return nil
		case resp.Phase == types.PhaseIdle:
			return nil
		case resp.IsFilling:
			pr := prompt{kind: promptAnswer, text: resp.Question + " (yes/no)", feature: resp.Feature}
			resp, err = p.step(resp, pr, p.s.AttributeAnswer, nil)
		case resp.IsGuess:
			resp, err = p.guess(resp)
		default:
			answer, back := p.s.Answer, p.s.Back
			if resp.IsRefining {
				answer, back = p.s.RefineAnswer, p.s.RefineBack
			}
			text := resp.Question + " (yes/no)"
			if resp.CanGoBack {
				text = resp.Question + " (yes/no/back)"
			}
			resp, err = p.step(resp, prompt{kind: promptAnswer, text: text, feature: resp.Feature}, answer, back)
		}
	}
	return err
}

// step asks one question and applies the reply. Replies the session rejects
// as input mistakes are reported and the same response is shown again.
func (p *player) step(resp types.Response, pr prompt, answer func(string) (types.Response, error), back func() (types.Response, error)) (types.Response, error) {
	line, err := p.c.ask(pr)
	if err != nil {
		return resp, err
	}
	var next types.Response
	if back != nil && strings.EqualFold(strings.TrimSpace(line), "back") {
		next, err = back()
	} else {
		next, err = answer(line)
	}
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		p.c.say("Please answer yes or no.")
		return resp, nil
	case errors.Is(err, types.ErrNoHistory):
		p.c.say("There is nothing to go back to.")
		return resp, nil
	case err != nil:
		return resp, err
	}
	return next, nil
}

func (p *player) guess(resp types.Response) (types.Response, error) {
	line, err := p.c.ask(prompt{
		kind:      promptGuess,
		text:      fmt.Sprintf("Is it a %s? (yes/no)", resp.Character),
		character: resp.Character,
	})
	if err != nil {
		return resp, err
	}
	v, err := types.ParseAnswer(line)
	if err != nil {
		p.c.say("Please answer yes or no.")
		return resp, nil
	}
	if v == 1 {
		p.c.say("I guessed it!")
		return p.s.Confirm()
	}
	if !resp.IsSecondGuess {
		p.c.say("Let me ask a few more questions.")
		return p.s.StartRefining()
	}
	return p.learn(resp)
}

// learn collects the correct animal and a distinguishing question. The
// question may be skipped for a new animal but not for a known one.
func (p *player) learn(resp types.Response) (types.Response, error) {
	wrong := resp.Character
	var name string
	for name == "" {
		line, err := p.c.ask(prompt{kind: promptName, text: "I give up. What animal were you thinking of?"})
		if err != nil {
			return resp, err
		}
		name = types.CleanName(line)
	}
	if types.NormalizeName(name) == types.NormalizeName(wrong) {
		p.c.say("That is what I guessed!")
		return p.s.Confirm()
	}

	required := false
	for {
		text := fmt.Sprintf("Give me a question that tells a %s from a %s (blank to skip):", name, wrong)
		if required {
			text = fmt.Sprintf("I already know a %s. Give me a question that tells it from a %s:", name, wrong)
		}
		q, err := p.c.ask(prompt{kind: promptQuestion, text: text})
		if err != nil {
			return resp, err
		}
		q = strings.TrimSpace(q)
		if q == "" && required {
			continue
		}

		var answer string
		if q != "" {
			answer, err = p.c.ask(prompt{kind: promptQuestionAnswer, text: fmt.Sprintf("And the answer for a %s? (yes/no)", name)})
			if err != nil {
				return resp, err
			}
		}

		next, err := p.s.StartLearning(name, wrong, q, answer)
		switch {
		case errors.Is(err, types.ErrMalformedQuestion):
			p.c.say(`Questions must start with "Is it", "Can it" or "Does it have".`)
			continue
		case errors.Is(err, types.ErrInvalidInput):
			p.c.say("Please answer yes or no.")
			continue
		case err != nil:
			return resp, err
		}
		if next.NeedsQuestion {
			required = true
			continue
		}
		if next.IsFilling {
			p.c.say("Tell me about a %s.", name)
		}
		return next, nil
	}
}
