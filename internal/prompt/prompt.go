// Package prompt asks the user to pick one item of a numbered list on the
// console.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrNotANumber = errors.New("not a number")
	ErrOutOfRange = errors.New("choice out of range")
	ErrCancelled  = errors.New("choice cancelled")
	ErrNoInput    = errors.New("no more input")
)

// ValidateChoice checks a 1-based choice typed by the user against a list
// of n items and returns the 0-based index.
func ValidateChoice(input string, n int) (int, error) {
	choice, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, input)
	}
	if choice < 1 || choice > n {
		return 0, fmt.Errorf("%w: %d not in 1-%d", ErrOutOfRange, choice, n)
	}
	return choice - 1, nil
}

// Prompt reads choices line by line. One Prompt should serve a whole run so
// that buffered input is not lost between questions.
type Prompt struct {
	// AllowCancel makes an empty line cancel the choice.
	AllowCancel bool

	in  *bufio.Reader
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

// Choose prints the numbered options and asks until a valid number is
// entered. There is no retry limit; end of input returns ErrNoInput.
func (p *Prompt) Choose(options []string) (int, error) {
	for i, opt := range options {
		fmt.Fprintf(p.out, "%d. %s\n", i+1, opt)
	}

	for {
		fmt.Fprintf(p.out, "\nZadej číslo (1-%d): ", len(options))

		line, err := p.in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return 0, ErrNoInput
			}
			return 0, fmt.Errorf("reading choice: %w", err)
		}

		if p.AllowCancel && strings.TrimSpace(line) == "" {
			return 0, ErrCancelled
		}

		idx, verr := ValidateChoice(line, len(options))
		switch {
		case verr == nil:
			return idx, nil
		case errors.Is(verr, ErrOutOfRange):
			fmt.Fprintln(p.out, "Zadané číslo je mimo rozsah.")
		default:
			fmt.Fprintln(p.out, "Zadej prosím platné číslo.")
		}

		if err == io.EOF {
			return 0, ErrNoInput
		}
	}
}
