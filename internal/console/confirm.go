package console

import (
	"fmt"
	"io"
	"strings"
)

// ExitQuestion is asked before leaving a session on F1.
const ExitQuestion = "Do you want to leave from this serial session?"

// Confirmer decides whether an exit request goes ahead.  next returns
// the next chunk of console input.
type Confirmer interface {
	Confirm(question string, next func() ([]byte, error)) (bool, error)
}

// AutoConfirm accepts every request.  It is used when there is no
// operator to ask.
type AutoConfirm struct{}

// Confirm always returns true.
func (AutoConfirm) Confirm(string, func() ([]byte, error)) (bool, error) {
	return true, nil
}

// Prompt asks the operator on Out and reads a single answer.  Only an
// answer starting with y or Y confirms.
type Prompt struct {
	Out io.Writer
}

// Confirm writes the question and waits for the next input chunk.
func (p *Prompt) Confirm(question string, next func() ([]byte, error)) (bool, error) {
	fmt.Fprintf(p.Out, "\r\n%s [y/N] ", question)
	answer, err := next()
	if err != nil {
		return false, err
	}
	yes := strings.HasPrefix(strings.ToLower(string(answer)), "y")
	if yes {
		fmt.Fprint(p.Out, "y\r\n")
	} else {
		fmt.Fprint(p.Out, "n\r\n")
	}
	return yes, nil
}
