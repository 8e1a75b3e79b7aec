package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter(t *testing.T) {
	f := &Formatter{NoColor: true}

	out, err := f.Format(&logrus.Entry{
		Time:    time.Date(2019, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "tried to start election when leader",
		Data:    logrus.Fields{"role": "leader", "node": "a"},
	})
	require.NoError(t, err)

	assert.Equal(t, "2019-01-02 03:04:05 WARN tried to start election when leader node=a role=leader\n", string(out))
}

func TestSetup(t *testing.T) {
	defer logrus.SetOutput(logrus.StandardLogger().Out)
	defer logrus.SetLevel(logrus.GetLevel())
	defer logrus.SetFormatter(logrus.StandardLogger().Formatter)

	buf := &bytes.Buffer{}
	require.NoError(t, Setup(buf, "debug", true))

	logrus.Debugf("hello %d", 1)
	logrus.Trace("hidden")

	assert.True(t, strings.HasSuffix(buf.String(), " DEBUG hello 1\n"), buf.String())

	assert.Error(t, Setup(buf, "loud", true))
}
