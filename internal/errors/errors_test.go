package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"gridtruth/domain/core"
)

func TestWrapClassifiesCause(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		exit int
	}{
		{"domain validation", core.NewValidationError("bills", "month"), CodeInvalidInput, 2},
		{"missing time", core.ErrMissingTime, CodeInvalidInput, 2},
		{"bad registry", fmt.Errorf("%w: duplicate", core.ErrInvalidRegistry), CodeConfigInvalid, 3},
		{"app error keeps code", ConfigInvalid("bad"), CodeConfigInvalid, 3},
		{"anything else", stderrors.New("disk"), CodeInternalError, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Wrap(tt.err, "step")
			assert.Equal(t, tt.code, GetCode(err))
			assert.Equal(t, tt.exit, ExitCode(err))
			assert.True(t, stderrors.Is(err, tt.err))
		})
	}
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "x"))
	assert.NoError(t, Wrapf(nil, "x %d", 1))
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	err := Wrapf(InvalidInput("month 13"), "bundle %s", "a")
	assert.Equal(t, "bundle a: month 13", err.Error())
}
