package depcheck

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/slimbuild/slimbuild/internal/l10n"
)

// PromptStdin returns a ConfirmFunc reading a y/n answer from stdin. When stdin
// is not a terminal nothing is read and the answer is no.
func PromptStdin(out io.Writer) ConfirmFunc {
	return func(prompt string) bool {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(out, l10n.T("Not running interactively; use --yes to remove without asking."))
			return false
		}
		return Prompt(os.Stdin, out)(prompt)
	}
}

// Prompt returns a ConfirmFunc reading answers from in.
func Prompt(in io.Reader, out io.Writer) ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(prompt string) bool {
		fmt.Fprintf(out, "%s (y/n) ", prompt)
		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(answer), "y")
	}
}

// AlwaysYes confirms without asking.
func AlwaysYes(string) bool { return true }
