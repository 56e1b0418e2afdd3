package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_WritesToConfiguredSinks(t *testing.T) {
	var info, errw bytes.Buffer
	l, err := New("", "", WithWriters(&info, &errw))
	assert.NoError(t, err)

	l.Infof("hello %s", "world")
	l.Errorf("boom %d", 42)

	assert.True(t, strings.Contains(info.String(), "hello world"))
	assert.True(t, strings.Contains(errw.String(), "boom 42"))
}

func TestLogger_NilReceiverIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Infof("ignored")
		l.Errorf("ignored")
	})
}
