package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// QuestionKind selects the prompt widget for a question.
type QuestionKind int

const (
	QuestionText QuestionKind = iota
	QuestionSecret
	QuestionLongText
	QuestionConfirm
	QuestionSelect
	QuestionMultiSelect
)

// Question is one prompt. Default seeds the text kinds, Confirmed seeds
// QuestionConfirm and Selected holds preselected option indices.
type Question struct {
	Kind      QuestionKind
	Message   string
	Default   string
	Confirmed bool
	Options   []string
	Selected  []int
	Validate  func(string) error
}

// Answer carries the reply in the field matching the question kind. Picked
// holds option indices for both select kinds.
type Answer struct {
	Text      string
	Confirmed bool
	Picked    []int
}

// PromptDriver asks one question at a time. Tests script it; the default
// implementation uses survey.
type PromptDriver interface {
	Ask(ctx context.Context, q Question) (Answer, error)
	Info(ctx context.Context, msg string) error
}

type surveyDriver struct {
	out io.Writer
}

func newSurveyDriver() PromptDriver {
	return surveyDriver{out: os.Stdout}
}

func (d surveyDriver) Ask(ctx context.Context, q Question) (Answer, error) {
	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}

	var opts []survey.AskOpt
	if q.Validate != nil {
		opts = append(opts, survey.WithValidator(func(ans any) error {
			text, _ := ans.(string)
			return q.Validate(text)
		}))
	}

	var ans Answer
	var err error
	switch q.Kind {
	case QuestionConfirm:
		err = survey.AskOne(&survey.Confirm{Message: q.Message, Default: q.Confirmed}, &ans.Confirmed)

	case QuestionSelect:
		prompt := &survey.Select{Message: q.Message, Options: q.Options}
		if picked := optionsAt(q.Options, q.Selected); len(picked) > 0 {
			prompt.Default = picked[0]
		}
		var choice string
		if err = survey.AskOne(prompt, &choice); err == nil {
			ans.Picked = positions(q.Options, []string{choice})
		}

	case QuestionMultiSelect:
		prompt := &survey.MultiSelect{Message: q.Message, Options: q.Options}
		if picked := optionsAt(q.Options, q.Selected); len(picked) > 0 {
			prompt.Default = picked
		}
		var choices []string
		if err = survey.AskOne(prompt, &choices); err == nil {
			ans.Picked = positions(q.Options, choices)
		}

	case QuestionSecret:
		err = survey.AskOne(&survey.Password{Message: q.Message}, &ans.Text, opts...)

	case QuestionLongText:
		err = survey.AskOne(&survey.Multiline{Message: q.Message, Default: q.Default}, &ans.Text, opts...)

	default:
		err = survey.AskOne(&survey.Input{Message: q.Message, Default: q.Default}, &ans.Text, opts...)
	}

	if errors.Is(err, terminal.InterruptErr) {
		return Answer{}, ErrAborted
	}
	return ans, err
}

func (d surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

// positions maps chosen option labels back to their indices, in option order.
func positions(options, chosen []string) []int {
	var out []int
	for i, option := range options {
		if slices.Contains(chosen, option) {
			out = append(out, i)
		}
	}
	return out
}

func optionsAt(options []string, indices []int) []string {
	var out []string
	for _, i := range indices {
		if i >= 0 && i < len(options) {
			out = append(out, options[i])
		}
	}
	return out
}
