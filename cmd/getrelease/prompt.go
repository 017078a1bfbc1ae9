package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/binary"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/service"
)

// formPrompter asks questions with huh forms.
type formPrompter struct {
	input  io.Reader
	output io.Writer
}

// terminalPrompter returns a form prompter when stdin is a terminal and nil
// otherwise, which makes every confirmation require --yes.
func terminalPrompter(cmd *cobra.Command) service.Prompter {
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isTerminal(in) {
		return nil
	}
	return &formPrompter{input: in, output: cmd.ErrOrStderr()}
}

// AskPattern shows the tied candidates and reads a refining pattern.
// An empty answer keeps every candidate.
func (p *formPrompter) AskPattern(ctx context.Context, candidates []string) (string, error) {
	var pattern string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Several assets match this machine equally well").
				Description(candidateList(candidates)),
			huh.NewInput().
				Title("Asset pattern").
				Description("Regular expression matched against the asset names (case-insensitive)").
				Placeholder(binary.MatchAll).
				Value(&pattern).
				Validate(validatePattern),
		),
	).WithInput(p.input).WithOutput(p.output)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", service.ErrCanceled
		}
		return "", fmt.Errorf("run pattern form: %w", err)
	}
	return strings.TrimSpace(pattern), nil
}

// Confirm asks a yes/no question. Aborting the form counts as no.
func (p *formPrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	var ok bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithInput(p.input).WithOutput(p.output)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("run confirm form: %w", err)
	}
	return ok, nil
}

func candidateList(urls []string) string {
	names := make([]string, 0, len(urls))
	for _, u := range urls {
		names = append(names, "• "+release.Filename(u))
	}
	return strings.Join(names, "\n")
}

func validatePattern(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := regexp.Compile(s); err != nil {
		return fmt.Errorf("not a valid regular expression: %w", err)
	}
	return nil
}
