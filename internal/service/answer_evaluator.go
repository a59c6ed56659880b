package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/coursework-engine/internal/models"
)

// floatTolerance is the absolute difference accepted for float answers.
const floatTolerance = 0.01

// EvaluateAnswer reports whether answer is correct for the question. It never
// mutates its inputs. Unparseable numbers are incorrect answers, not errors;
// only type combinations the evaluator does not know yield an error.
func EvaluateAnswer(question models.Question, answer string) (bool, error) {
	if question.AnswerType == models.AnswerTypeAny {
		return true, nil
	}

	switch question.QuestionType {
	case models.QuestionTypeMultipleChoice:
		selected, ok := models.ParseStrictIndexSet(answer)
		if !ok || len(selected) != 1 {
			return false, nil
		}
		correct := models.ParseIndexSet(question.CorrectAnswer)
		for index := range selected {
			_, ok := correct[index]
			return ok, nil
		}
		return false, nil
	case models.QuestionTypeCheckboxes:
		selected, ok := models.ParseStrictIndexSet(answer)
		if !ok {
			return false, nil
		}
		return sameIndexSet(selected, models.ParseIndexSet(question.CorrectAnswer)), nil
	case models.QuestionTypeFreeForm, models.QuestionTypeFreeFormLong:
		return evaluateFreeForm(question, answer)
	default:
		return false, fmt.Errorf("%w: question type %q", ErrUnsupportedQuestionType, question.QuestionType)
	}
}

func evaluateFreeForm(question models.Question, answer string) (bool, error) {
	submitted := strings.ToLower(strings.TrimSpace(answer))
	expected := strings.ToLower(strings.TrimSpace(question.CorrectAnswer))

	switch question.AnswerType {
	case models.AnswerTypeExactString:
		return submitted == expected, nil
	case models.AnswerTypeContainsString:
		return strings.Contains(submitted, expected), nil
	case models.AnswerTypeFloat:
		return floatsEqual(submitted, expected), nil
	case models.AnswerTypeInteger:
		return integersEqual(submitted, expected), nil
	default:
		return false, fmt.Errorf("%w: answer type %q for question type %q", ErrUnsupportedQuestionType, question.AnswerType, question.QuestionType)
	}
}

func floatsEqual(submitted, expected string) bool {
	got, err := strconv.ParseFloat(submitted, 64)
	if err != nil {
		return false
	}
	want, err := strconv.ParseFloat(expected, 64)
	if err != nil {
		return false
	}
	// 3.15 against 3.14 differs by 0.0100000000000002 in binary; the slack accepts it.
	return math.Abs(got-want) <= floatTolerance+1e-9
}

func integersEqual(submitted, expected string) bool {
	got, err := strconv.ParseInt(submitted, 10, 64)
	if err != nil {
		return false
	}
	want, err := strconv.ParseInt(expected, 10, 64)
	if err != nil {
		return false
	}
	return got == want
}

func sameIndexSet(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for index := range a {
		if _, ok := b[index]; !ok {
			return false
		}
	}
	return true
}
