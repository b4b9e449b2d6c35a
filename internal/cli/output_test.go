package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramdb/engram/internal/engine"
)

func TestExitError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := WrapExitError(ExitFailure, "failed", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "failed")
	assert.Contains(t, err.Error(), "cause")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "op failed", nil)))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "bad flag", nil)))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", nil))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestFormatter_OK_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &Formatter{Format: "text", Writer: buf}

	require.NoError(t, f.OK("created user uid=u_1", map[string]string{"uid": "u_1"}))
	assert.Equal(t, "created user uid=u_1\n", buf.String())
}

func TestFormatter_OK_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &Formatter{Format: "json", Writer: buf}

	require.NoError(t, f.OK("ignored in json mode", map[string]string{"uid": "u_1"}))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "u_1", data["uid"])
}

func TestFormatter_Fail_CarriesEngineCode(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &Formatter{Format: "json", Writer: buf}

	err := f.Fail(&engine.Error{Code: engine.ErrCodeNotFound, Message: "user not found: u_9"})
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "u_9")
}

func TestFormatter_Fail_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &Formatter{Format: "text", Writer: buf}

	err := f.Fail(&engine.Error{Code: engine.ErrCodeValidation, Message: "bad input"})
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [VALIDATION]")
}

func TestFormatter_CommandError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &Formatter{Format: "text", Writer: buf}

	err := f.CommandError("failed to read schema file", errors.New("no such file"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "failed to read schema file")
}
