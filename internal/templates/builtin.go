package templates

import (
	"sync"

	"github.com/abhisek/adaptiq/internal/question"
)

// Built-in subjects.
const (
	SubjectMathematics = "mathematics"
	SubjectScience     = "science"
	SubjectLanguage    = "language"
)

var (
	builtinOnce sync.Once
	builtinLib  *Library
)

// Builtin returns the built-in library. It covers every question type for
// mathematics, science and language.
func Builtin() *Library {
	builtinOnce.Do(func() {
		lib, err := NewLibrary(builtinTemplates())
		if err != nil {
			panic("templates: invalid built-in library: " + err.Error())
		}
		builtinLib = lib
	})
	return builtinLib
}

var (
	choiceFeedback = question.FeedbackTemplates{
		Correct:   "Correct! The answer is {answer}.",
		Incorrect: "Not quite. The correct answer is {answer}.",
	}
	claimFeedback = question.FeedbackTemplates{
		Correct:   "Correct! The statement is {answer}.",
		Incorrect: "Not quite. The statement is {answer}.",
	}
	essayFeedback = question.FeedbackTemplates{
		Correct:   "Thanks, your response is long enough to be reviewed.",
		Incorrect: "Your response is too short. Develop your ideas further.",
		Partial:   "Good start. Add supporting detail.",
	}
)

func builtinTemplates() []Template {
	return []Template{
		// Mathematics
		{
			ID: "math-equation-mc", Subject: SubjectMathematics, Topic: "algebra",
			Type:        question.TypeMultipleChoice,
			Text:        "Find the positive value of x that satisfies {equation}.",
			Vars:        map[string]VariableKind{"equation": KindEquation},
			AnswerVar:   "equation",
			Explanation: "Isolate x one step at a time. The positive solution of {equation} is x = {answer}.",
			Hints: []string{
				"Undo the operations applied to x in reverse order.",
				"Substitute each option back into {equation} to check it.",
			},
			Feedback: choiceFeedback,
		},
		{
			ID: "math-arithmetic-short", Subject: SubjectMathematics, Topic: "arithmetic",
			Type:        question.TypeShortAnswer,
			Text:        "What is {expr}?",
			Vars:        map[string]VariableKind{"expr": KindArithmetic},
			AnswerVar:   "expr",
			Explanation: "Evaluating {expr} with the order of operations gives {answer}.",
			Hints: []string{
				"Work inside brackets first, then multiplication and division.",
				"Addition and subtraction come last.",
			},
			Feedback: question.FeedbackTemplates{
				Correct:   "Correct! {expr} = {answer}.",
				Incorrect: "Not quite. {expr} = {answer}.",
			},
		},
		{
			ID: "math-prime-tf", Subject: SubjectMathematics, Topic: "number theory",
			Type:        question.TypeTrueFalse,
			Text:        "True or false: {claim}.",
			Vars:        map[string]VariableKind{"claim": KindPrimeClaim},
			AnswerVar:   "claim",
			Explanation: "A prime has exactly two divisors, 1 and itself. The statement is {answer}.",
			Hints: []string{
				"Try dividing by the primes up to its square root.",
				"Every even number above 2 is composite.",
			},
			Feedback: claimFeedback,
		},
		{
			ID: "math-number-fill", Subject: SubjectMathematics, Topic: "place value",
			Type:        question.TypeFillBlank,
			Text:        "Write {number} using digits: ____",
			Vars:        map[string]VariableKind{"number": KindNumber},
			AnswerVar:   "number",
			Explanation: "{number} is written {answer}.",
			Hints: []string{
				"Split the number into thousands, hundreds, tens and ones.",
				"Use a zero for any empty place.",
			},
			Feedback: choiceFeedback,
		},
		{
			ID: "math-equation-essay", Subject: SubjectMathematics, Topic: "algebra",
			Type:        question.TypeEssay,
			Text:        "Explain, step by step, how you would solve {equation} and how you would check your answer.",
			Vars:        map[string]VariableKind{"equation": KindEquation},
			Explanation: "A complete answer names each inverse operation and substitutes the result back in.",
			Hints: []string{
				"Describe what each step does to both sides.",
				"Finish by verifying the solution.",
			},
			Feedback: essayFeedback,
		},

		// Science
		{
			ID: "sci-element-mc", Subject: SubjectScience, Topic: "chemistry",
			Type:        question.TypeMultipleChoice,
			Text:        "What is the chemical symbol for {element}?",
			Vars:        map[string]VariableKind{"element": KindElement},
			AnswerVar:   "element",
			Explanation: "The symbol for {element} is {answer}.",
			Hints: []string{
				"Some symbols come from the element's Latin name.",
				"Symbols start with a capital letter.",
			},
			Feedback: choiceFeedback,
		},
		{
			ID: "sci-element-short", Subject: SubjectScience, Topic: "chemistry",
			Type:        question.TypeShortAnswer,
			Text:        "Type the chemical symbol for {element}.",
			Vars:        map[string]VariableKind{"element": KindElement},
			AnswerVar:   "element",
			Explanation: "The symbol for {element} is {answer}.",
			Hints: []string{
				"Symbols are one or two letters.",
				"Some symbols come from the element's Latin name.",
			},
			Feedback: choiceFeedback,
		},
		{
			ID: "sci-claim-tf", Subject: SubjectScience, Topic: "general science",
			Type:        question.TypeTrueFalse,
			Text:        "True or false: {claim}.",
			Vars:        map[string]VariableKind{"claim": KindScienceClaim},
			AnswerVar:   "claim",
			Explanation: "The statement \"{claim}\" is {answer}.",
			Hints: []string{
				"Think about an everyday example.",
				"Recall the definition of each term in the statement.",
			},
			Feedback: claimFeedback,
		},
		{
			ID: "sci-element-fill", Subject: SubjectScience, Topic: "chemistry",
			Type:        question.TypeFillBlank,
			Text:        "The chemical symbol for {element} is ____.",
			Vars:        map[string]VariableKind{"element": KindElement},
			AnswerVar:   "element",
			Explanation: "The symbol for {element} is {answer}.",
			Hints: []string{
				"Check the periodic table.",
				"The first letter of the symbol is capitalised.",
			},
			Feedback: choiceFeedback,
		},
		{
			ID: "sci-concept-essay", Subject: SubjectScience, Topic: "scientific explanation",
			Type:        question.TypeEssay,
			Text:        "Describe {concept} and explain why it matters in everyday life.",
			Vars:        map[string]VariableKind{"concept": KindConcept},
			Explanation: "A strong answer defines {concept}, describes its stages and gives a real example.",
			Hints: []string{
				"Start with a one-sentence definition.",
				"Give at least one concrete example.",
			},
			Feedback: essayFeedback,
		},

		// Language
		{
			ID: "lang-synonym-mc", Subject: SubjectLanguage, Topic: "vocabulary",
			Type:        question.TypeMultipleChoice,
			Text:        "Which word is closest in meaning to \"{word}\"?",
			Vars:        map[string]VariableKind{"word": KindSynonym},
			AnswerVar:   "word",
			Explanation: "\"{word}\" and \"{answer}\" have nearly the same meaning.",
			Hints: []string{
				"Use the word in a sentence, then swap in each option.",
				"Rule out options with the opposite meaning.",
			},
			Feedback: choiceFeedback,
		},
		{
			ID: "lang-synonym-short", Subject: SubjectLanguage, Topic: "vocabulary",
			Type:        question.TypeShortAnswer,
			Text:        "Give the most common synonym of \"{word}\".",
			Vars:        map[string]VariableKind{"word": KindSynonym},
			AnswerVar:   "word",
			Explanation: "The most common synonym of \"{word}\" is \"{answer}\".",
			Hints: []string{
				"Think of a simpler everyday word.",
				"It should fit the same sentence.",
			},
			Feedback: choiceFeedback,
		},
		{
			ID: "lang-synonym-tf", Subject: SubjectLanguage, Topic: "vocabulary",
			Type:        question.TypeTrueFalse,
			Text:        "True or false: {claim}.",
			Vars:        map[string]VariableKind{"claim": KindSynonymClaim},
			AnswerVar:   "claim",
			Explanation: "The statement is {answer}.",
			Hints: []string{
				"Try replacing one word with the other in a sentence.",
				"Does the meaning stay the same?",
			},
			Feedback: claimFeedback,
		},
		{
			ID: "lang-synonym-fill", Subject: SubjectLanguage, Topic: "vocabulary",
			Type:        question.TypeFillBlank,
			Text:        "Another word for \"{word}\" is ____.",
			Vars:        map[string]VariableKind{"word": KindSynonym},
			AnswerVar:   "word",
			Explanation: "\"{answer}\" means the same as \"{word}\".",
			Hints: []string{
				"Any close synonym is accepted.",
				"Use a single word.",
			},
			Feedback: choiceFeedback,
		},
		{
			ID: "lang-word-essay", Subject: SubjectLanguage, Topic: "writing",
			Type:        question.TypeEssay,
			Text:        "Write a short paragraph that uses the word \"{word}\" correctly and explains what it means.",
			Vars:        map[string]VariableKind{"word": KindSynonym},
			Explanation: "A strong answer uses \"{word}\" in context and defines it in your own words.",
			Hints: []string{
				"Use the word at least twice.",
				"Include an example sentence.",
			},
			Feedback: essayFeedback,
		},
	}
}
