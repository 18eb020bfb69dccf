package llm

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFromStatusCode(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{400, func(err error) bool { var e *InvalidRequestError; return errors.As(err, &e) }},
		{401, func(err error) bool { var e *AuthenticationError; return errors.As(err, &e) }},
		{403, func(err error) bool { var e *AccessDeniedError; return errors.As(err, &e) }},
		{404, func(err error) bool { var e *NotFoundError; return errors.As(err, &e) }},
		{422, func(err error) bool { var e *InvalidRequestError; return errors.As(err, &e) }},
		{429, func(err error) bool { var e *RateLimitError; return errors.As(err, &e) }},
		{503, func(err error) bool { var e *ServerError; return errors.As(err, &e) }},
		{418, func(err error) bool { var e *ProviderError; return errors.As(err, &e) }},
	}
	for _, tc := range cases {
		err := ErrorFromStatusCode(tc.status, "test", "body")
		if !tc.check(err) {
			t.Errorf("status %d: wrong error type %T", tc.status, err)
		}
	}
}

func TestLoopErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &ParseError{LoopError: LoopError{Message: "parse failed", Cause: cause}}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
	wrapped := fmt.Errorf("outer: %w", err)
	var parseErr *ParseError
	if !errors.As(wrapped, &parseErr) {
		t.Error("expected errors.As to find ParseError through wrapping")
	}
}
