// Package cmd provides helpers shared by the command line tools.
package cmd

import (
	"bufio"
	"fmt"
	"slices"
	"strings"

	"github.com/discordforstudywif/poof/shared/logger"
)

// Asker holds a reader for reading input into CLI questions.
type Asker struct {
	reader *bufio.Reader
	logger logger.Logger
}

// NewAsker creates a new Asker instance that reads from the given reader.
func NewAsker(reader *bufio.Reader, log logger.Logger) Asker {
	return Asker{reader: reader, logger: log}
}

// AskBool asks a question and expects a yes/no answer.
func (a *Asker) AskBool(question string, defaultAnswer string) (bool, error) {
	for {
		answer, err := a.askQuestion(question, defaultAnswer)
		if err != nil {
			if a.logger != nil {
				a.logger.Error("Failed to read answer from asker", logger.Ctx{"answer": answer, "question": question, "err": err})
			}

			return false, err
		}

		if slices.Contains([]string{"yes", "y"}, strings.ToLower(answer)) {
			return true, nil
		} else if slices.Contains([]string{"no", "n"}, strings.ToLower(answer)) {
			return false, nil
		}

		a.invalidInput(question, answer)
	}
}

// AskChoice asks the user to select one of multiple options.
func (a *Asker) AskChoice(question string, choices []string, defaultAnswer string) (string, error) {
	for {
		answer, err := a.askQuestion(question, defaultAnswer)
		if err != nil {
			if a.logger != nil {
				a.logger.Error("Failed to read answer from asker", logger.Ctx{"answer": answer, "question": question, "err": err})
			}

			return "", err
		}

		if slices.Contains(choices, answer) {
			return answer, nil
		}

		a.invalidInput(question, answer)
	}
}

// AskString asks a question and returns the raw answer, substituting the
// default when the input is empty. When validate is set, invalid answers
// are rejected and the question repeated.
func (a *Asker) AskString(question string, defaultAnswer string, validate func(string) error) (string, error) {
	for {
		answer, err := a.askQuestion(question, defaultAnswer)
		if err != nil {
			if a.logger != nil {
				a.logger.Error("Failed to read answer from asker", logger.Ctx{"answer": answer, "question": question, "err": err})
			}

			return "", err
		}

		if validate == nil {
			return answer, nil
		}

		err = validate(answer)
		if err == nil {
			return answer, nil
		}

		fmt.Printf("Invalid input: %v\n\n", err)
	}
}

// askQuestion asks the user a question and returns the answer, substituting
// the default answer when the input is empty.
func (a *Asker) askQuestion(question string, defaultAnswer string) (string, error) {
	fmt.Print(question)

	return a.readAnswer(defaultAnswer)
}

// readAnswer reads one line of input, trims it and applies the default.
func (a *Asker) readAnswer(defaultAnswer string) (string, error) {
	answer, err := a.reader.ReadString('\n')
	answer = strings.TrimSpace(strings.TrimSuffix(answer, "\n"))
	if answer == "" {
		answer = defaultAnswer
	}

	return answer, err
}

// invalidInput informs the user of an invalid input.
func (a *Asker) invalidInput(question string, answer string) {
	if a.logger != nil {
		a.logger.Warn("Invalid input for asker question", logger.Ctx{"answer": answer, "question": question})
	}

	fmt.Println("Invalid input, try again.")
}
