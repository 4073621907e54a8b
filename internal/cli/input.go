package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword and isTerminal are swapped out in tests
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// promptPassword reads a password without echo when stdin is a terminal.
// Piped input is read as a single line.
func promptPassword(in io.Reader, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Password: "); err != nil {
		return "", err
	}

	fd := int(os.Stdin.Fd())
	if f, ok := in.(*os.File); ok && f == os.Stdin && isTerminal(fd) {
		pw, err := readPassword(fd)
		_, _ = fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
