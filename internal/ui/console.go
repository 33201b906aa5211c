// Package ui reads operator input from the terminal.
package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// pinMatrix is the scrambled keypad layout shown on the device. The operator
// types the positions, not the digits.
const pinMatrix = "    7 8 9\n    4 5 6\n    1 2 3\n"

// Console prompts on out and reads answers from in. Secrets are read without
// echo when in is a terminal.
type Console struct {
	in   *bufio.Reader
	fd   int
	tty  bool
	out  io.Writer
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.fd = int(f.Fd())
		c.tty = true
	}
	return c
}

func (c *Console) Notify(message string) {
	fmt.Fprintln(c.out, message)
}

// Prompt asks for one line of input and returns it without the line ending.
func (c *Console) Prompt(label string) (string, error) {
	fmt.Fprintf(c.out, "%s: ", label)
	return c.readLine()
}

// PromptLines keeps asking until an empty line is entered.
func (c *Console) PromptLines(label string, fn func(line string) error) error {
	for {
		line, err := c.Prompt(label)
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		if err := fn(line); err != nil {
			return err
		}
	}
}

// Secret asks for input without echo.
func (c *Console) Secret(label string) (string, error) {
	fmt.Fprintf(c.out, "%s: ", label)
	if !c.tty {
		return c.readLine()
	}
	buf, err := term.ReadPassword(c.fd)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func (c *Console) PIN(kind string) (string, error) {
	fmt.Fprintln(c.out, "Use the numeric keypad to describe number positions. The layout is:")
	fmt.Fprint(c.out, pinMatrix)
	label := "Please enter current PIN"
	switch kind {
	case "new":
		label = "Please enter new PIN"
	case "confirm":
		label = "Please enter new PIN again"
	}
	pin, err := c.Secret(label)
	if err != nil {
		return "", err
	}
	if strings.Trim(pin, "123456789") != "" {
		return "", errors.New("pin may only contain keypad positions 1-9")
	}
	return pin, nil
}

func (c *Console) Passphrase() (string, error) {
	first, err := c.Secret("Passphrase required")
	if err != nil {
		return "", err
	}
	second, err := c.Secret("Confirm your passphrase")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passphrase did not match")
	}
	return first, nil
}

// Confirm asks a yes/no question; only "y" or "yes" count as agreement.
func (c *Console) Confirm(question string) (bool, error) {
	answer, err := c.Prompt(question + " [y/N]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
