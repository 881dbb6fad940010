// Package failure holds the closed set of ways a request cycle can fail.
// Every outbound call site wraps its error in one of these kinds so the
// rendering layers can show an inline notice instead of aborting the session.
package failure

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is a missing required field or credential. No outbound
	// call is made.
	KindValidation
	KindIngestion
	KindGeneration
	KindSynthesis
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindIngestion:
		return "ingestion"
	case KindGeneration:
		return "generation"
	case KindSynthesis:
		return "synthesis"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(op string, err error) error { return &Error{Kind: KindValidation, Op: op, Err: err} }
func Ingestion(op string, err error) error  { return &Error{Kind: KindIngestion, Op: op, Err: err} }
func Generation(op string, err error) error { return &Error{Kind: KindGeneration, Op: op, Err: err} }
func Synthesis(op string, err error) error  { return &Error{Kind: KindSynthesis, Op: op, Err: err} }

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// UserMessage is the inline notice shown for err.
func UserMessage(err error) string {
	var fe *Error
	if !errors.As(err, &fe) {
		return "Something went wrong. Please try again."
	}
	switch fe.Kind {
	case KindValidation:
		return "Please fill in every field and enter your API key first."
	case KindIngestion:
		return "Couldn't extract article."
	case KindGeneration:
		return fmt.Sprintf("An error occurred while generating the answer: %v", fe.Err)
	case KindSynthesis:
		return fmt.Sprintf("An error occurred while generating the audio: %v", fe.Err)
	default:
		return "Something went wrong. Please try again."
	}
}
