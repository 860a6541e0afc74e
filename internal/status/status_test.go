package status

import (
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
)

func TestColorText(t *testing.T) {
	got := ColorText("ok", pterm.FgGreen)
	assert.Equal(t, "ok", pterm.RemoveColorFromString(got))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		state  string
		offset int
		want   string
	}{
		{
			name:   "padded to offset",
			msg:    "install",
			state:  Done,
			offset: 20,
			want:   "     [ DONE ]",
		},
		{
			name:   "colored message counts visible width only",
			msg:    pterm.FgBlue.Sprint("install"),
			state:  Done,
			offset: 20,
			want:   "     [ DONE ]",
		},
		{
			name:   "long message keeps one space",
			msg:    strings.Repeat("x", 40),
			state:  Error,
			offset: 20,
			want:   " [ ERROR ]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.msg, tt.state, pterm.FgGreen, tt.offset)
			assert.Equal(t, tt.want, pterm.RemoveColorFromString(got))
		})
	}
}

func TestMessage(t *testing.T) {
	got := pterm.RemoveColorFromString(Message("[host1] uptime", Done, pterm.FgGreen))

	assert.True(t, strings.HasPrefix(got, "[host1] uptime "))
	assert.True(t, strings.HasSuffix(got, "[ DONE ]"))
	assert.Len(t, got, DefaultOffset)
}

func TestForExitCode(t *testing.T) {
	state, color := ForExitCode(0)
	assert.Equal(t, Done, state)
	assert.Equal(t, pterm.FgGreen, color)

	state, color = ForExitCode(2)
	assert.Equal(t, Error, state)
	assert.Equal(t, pterm.FgRed, color)
}
