package commands

// Exit codes reported by the CLI. CI jobs branch on these, so they are part
// of the tool's contract.
const (
	ExitOK         = 0
	ExitUsage      = 1
	ExitValidation = 2
	ExitAPI        = 3
	ExitPartial    = 4
)

// ExitError couples an error with the process exit code it should produce.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageErr(err error) *ExitError {
	return &ExitError{Code: ExitUsage, Err: err}
}

func validationErr(err error) *ExitError {
	return &ExitError{Code: ExitValidation, Err: err}
}

func apiErr(err error) *ExitError {
	return &ExitError{Code: ExitAPI, Err: err}
}
