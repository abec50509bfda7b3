package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNewFormatsMessage(t *testing.T) {
	err := New(ErrCodeInvalidFormat, "invalid format %q", "gif")

	if err.Code != ErrCodeInvalidFormat {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidFormat)
	}
	if want := `INVALID_FORMAT: invalid format "gif"`; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("rsvg-convert: not found")
	err := Wrap(ErrCodeRenderFailed, cause, "render png")

	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if UserMessage(err) != "render png" {
		t.Errorf("UserMessage() = %q, want the wrapping message", UserMessage(err))
	}
}

func TestCodeLookup(t *testing.T) {
	noNetwork := New(ErrCodeNoNetwork, `no network named "Decoder"`)
	wrapped := fmt.Errorf("layout: %w", noNetwork)
	nested := Wrap(ErrCodeRenderFailed, New(ErrCodeTimeout, "dot"), "render")

	tests := []struct {
		name string
		err  error
		code Code
		is   bool
		get  Code
	}{
		{"direct", noNetwork, ErrCodeNoNetwork, true, ErrCodeNoNetwork},
		{"other code", noNetwork, ErrCodeSourceErrors, false, ErrCodeNoNetwork},
		{"behind fmt.Errorf", wrapped, ErrCodeNoNetwork, true, ErrCodeNoNetwork},
		{"outer code wins", nested, ErrCodeRenderFailed, true, ErrCodeRenderFailed},
		{"plain error", errors.New("disk full"), ErrCodeInternal, false, ""},
		{"nil", nil, ErrCodeInternal, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.is {
				t.Errorf("Is(%v, %s) = %v, want %v", tt.err, tt.code, got, tt.is)
			}
			if got := GetCode(tt.err); got != tt.get {
				t.Errorf("GetCode(%v) = %q, want %q", tt.err, got, tt.get)
			}
		})
	}
}

func TestUserMessagePlainError(t *testing.T) {
	if got := UserMessage(errors.New("read model.nv: permission denied")); got != "read model.nv: permission denied" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrCodeInvalidFormat, "bad"), http.StatusBadRequest},
		{New(ErrCodeInvalidOption, "direction"), http.StatusBadRequest},
		{New(ErrCodeNoNetwork, "none"), http.StatusNotFound},
		{Wrap(ErrCodeSourceErrors, errors.New("x"), "source"), http.StatusUnprocessableEntity},
		{New(ErrCodeNetwork, "redis"), http.StatusBadGateway},
		{New(ErrCodeRenderFailed, "dot"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
