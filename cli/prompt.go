package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// ErrEmptyInput is returned by PromptString validation on empty input.
var ErrEmptyInput = errors.New("you must enter something")

// Prompter asks questions on a terminal.
type Prompter struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

// NewPrompter creates a prompter on the process's stdin and stdout.
func NewPrompter() *Prompter {
	return &Prompter{Stdin: os.Stdin, Stdout: os.Stdout}
}

// Confirm asks a yes/no question. An answer of no is not an error.
func (p *Prompter) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     p.Stdin,
		Stdout:    p.Stdout,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// String asks for non-empty text.
func (p *Prompter) String(label string) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Validate: validateNonEmpty,
		Stdin:    p.Stdin,
		Stdout:   p.Stdout,
	}

	return prompt.Run()
}

// Int asks for a 32-bit integer.
func (p *Prompter) Int(label string) (int, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Validate: validateInt,
		Stdin:    p.Stdin,
		Stdout:   p.Stdout,
	}

	txt, err := prompt.Run()
	if err != nil {
		return 0, err
	}

	return parseInt(txt)
}

// Select asks the user to pick one of choices and returns its index.
func (p *Prompter) Select(label string, choices ...string) (int, string, error) {
	sel := promptui.Select{
		Label:  label,
		Items:  choices,
		Stdin:  p.Stdin,
		Stdout: p.Stdout,
	}

	return sel.Run()
}

func validateNonEmpty(s string) error {
	if len(s) == 0 {
		return ErrEmptyInput
	}

	return nil
}

func validateInt(s string) error {
	_, err := parseInt(s)

	return err
}

func parseInt(s string) (int, error) {
	val, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}

	return int(val), nil
}
