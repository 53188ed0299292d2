// Package confirmation prompts the operator before destructive operations.
package confirmation

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirmer reads a typed confirmation phrase from the operator.
type Confirmer struct {
	in  io.Reader
	out io.Writer
}

// New creates a confirmer reading from in and prompting on out.
func New(in io.Reader, out io.Writer) *Confirmer {
	return &Confirmer{in: in, out: out}
}

// ConfirmPhrase asks the operator to type the exact phrase. Anything else,
// including EOF, declines; declining is not an error. autoApprove skips the
// prompt, for automation.
func (c *Confirmer) ConfirmPhrase(question, phrase string, autoApprove bool) (bool, error) {
	if autoApprove {
		return true, nil
	}

	fmt.Fprintf(c.out, "%s\nType %q to continue: ", strings.TrimSpace(question), phrase)

	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read confirmation input: %w", err)
	}
	return strings.TrimSpace(line) == phrase, nil
}
