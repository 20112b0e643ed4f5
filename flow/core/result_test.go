package core

import (
	"errors"
	"strings"
	"testing"
)

func TestErrPanic_Error(t *testing.T) {
	tests := []struct {
		name     string
		panic    ErrPanic
		contains []string
	}{
		{
			name:     "without stack",
			panic:    ErrPanic{Value: "test panic"},
			contains: []string{"panic: test panic"},
		},
		{
			name:     "with stack",
			panic:    ErrPanic{Value: "test panic", Stack: "some/function\n\tfile.go:42"},
			contains: []string{"panic: test panic", "some/function", "file.go:42"},
		},
		{
			name:     "integer value",
			panic:    ErrPanic{Value: 42},
			contains: []string{"panic: 42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.panic.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(msg, substr) {
					t.Errorf("Error() = %q, want it to contain %q", msg, substr)
				}
			}
		})
	}
}

func TestNewPanicError(t *testing.T) {
	var err ErrPanic
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = NewPanicError(r)
			}
		}()
		panic("test panic value")
	}()

	if err.Value != "test panic value" {
		t.Errorf("Value = %v, want %q", err.Value, "test panic value")
	}
	if !strings.Contains(err.Error(), "panic: test panic value") {
		t.Errorf("Error() = %q, want it to contain 'panic: test panic value'", err.Error())
	}
	if strings.Contains(err.Stack, "github.com/lguimbarda/fibflow/flow/") {
		t.Errorf("Stack should not contain internal frames:\n%s", err.Stack)
	}
}

func TestCleanStack(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		shouldContain []string
		shouldExclude []string
	}{
		{
			name: "removes flow frames",
			input: `user/code/main.go
	/path/to/user/code/main.go:10
github.com/lguimbarda/fibflow/flow/core.Protect[...]
	/path/to/fibflow/flow/core/errors.go:50
testing.tRunner
	/usr/local/go/src/testing/testing.go:1595`,
			shouldContain: []string{"user/code/main.go", "testing.tRunner"},
			shouldExclude: []string{"core.Protect", "errors.go:50"},
		},
		{
			name:          "preserves user code",
			input:         "myapp/handler.Process\n\t/home/user/myapp/handler.go:25",
			shouldContain: []string{"myapp/handler.Process", "handler.go:25"},
		},
		{
			name:  "handles empty input",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cleanStack(tt.input)
			for _, s := range tt.shouldContain {
				if !strings.Contains(result, s) {
					t.Errorf("cleanStack() should contain %q, got:\n%s", s, result)
				}
			}
			for _, s := range tt.shouldExclude {
				if strings.Contains(result, s) {
					t.Errorf("cleanStack() should NOT contain %q, got:\n%s", s, result)
				}
			}
		})
	}
}

func TestResult_States(t *testing.T) {
	boom := errors.New("boom")
	marker := errors.New("page boundary")

	tests := []struct {
		name         string
		res          Result[int]
		wantValue    bool
		wantError    bool
		wantSentinel bool
		wantEOS      bool
	}{
		{name: "ok", res: Ok(42), wantValue: true},
		{name: "err", res: Err[int](boom), wantError: true},
		{name: "sentinel", res: Sentinel[int](marker), wantSentinel: true},
		{name: "end of stream", res: EndOfStream[int](), wantSentinel: true, wantEOS: true},
		{name: "explicit value", res: NewResult(7, nil, false), wantValue: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.IsValue(); got != tt.wantValue {
				t.Errorf("IsValue() = %v, want %v", got, tt.wantValue)
			}
			if got := tt.res.IsError(); got != tt.wantError {
				t.Errorf("IsError() = %v, want %v", got, tt.wantError)
			}
			if got := tt.res.IsSentinel(); got != tt.wantSentinel {
				t.Errorf("IsSentinel() = %v, want %v", got, tt.wantSentinel)
			}
			if got := tt.res.IsEndOfStream(); got != tt.wantEOS {
				t.Errorf("IsEndOfStream() = %v, want %v", got, tt.wantEOS)
			}
		})
	}
}

func TestResult_ErrorAccessors(t *testing.T) {
	boom := errors.New("boom")

	if err := Err[int](boom).Error(); !errors.Is(err, boom) {
		t.Errorf("Err().Error() = %v, want %v", err, boom)
	}
	if err := Err[int](boom).Sentinel(); err != nil {
		t.Errorf("Err().Sentinel() = %v, want nil", err)
	}
	if err := EndOfStream[int]().Error(); err != nil {
		t.Errorf("EndOfStream().Error() = %v, want nil", err)
	}
	if err := EndOfStream[int]().Sentinel(); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("EndOfStream().Sentinel() = %v, want %v", err, ErrEndOfStream)
	}

	v, err := Ok(3).Unwrap()
	if v != 3 || err != nil {
		t.Errorf("Unwrap() = (%d, %v), want (3, nil)", v, err)
	}
}

func TestRecast(t *testing.T) {
	boom := errors.New("boom")

	failed := Recast[string](Err[int](boom))
	if !failed.IsError() || !errors.Is(failed.Error(), boom) {
		t.Errorf("Recast(Err) = %+v, want error %v", failed, boom)
	}

	ended := Recast[string](EndOfStream[int]())
	if !ended.IsEndOfStream() {
		t.Errorf("Recast(EndOfStream) lost the end-of-stream marker")
	}
}
