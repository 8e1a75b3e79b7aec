package logging

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

const (
	format = "2006-01-02 15:04:05"
)

var levelColors = map[logrus.Level]*color.Color{
	logrus.TraceLevel: color.New(color.FgCyan),
	logrus.DebugLevel: color.New(color.FgGreen),
	logrus.InfoLevel:  color.New(color.FgWhite),
	logrus.WarnLevel:  color.New(color.FgBlue),
	logrus.ErrorLevel: color.New(color.FgRed),
	logrus.FatalLevel: color.New(color.FgRed, color.Bold),
	logrus.PanicLevel: color.New(color.FgRed, color.Bold),
}

// Formatter prints "<time> LEVEL message key=value ..." with the line colored by level
type Formatter struct {
	NoColor bool
}

func (f *Formatter) Format(e *logrus.Entry) ([]byte, error) {
	b := &bytes.Buffer{}

	fmt.Fprintf(b, "%v %s %s", e.Time.Format(format), levelName(e.Level), e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, e.Data[k])
	}

	line := b.String()

	if !f.NoColor {
		if c, ok := levelColors[e.Level]; ok {
			line = c.Sprint(line)
		}
	}

	return []byte(line + "\n"), nil
}

func levelName(l logrus.Level) string {
	if l == logrus.WarnLevel {
		return "WARN"
	}

	return strings.ToUpper(l.String())
}

// Setup points the standard logrus logger at out with the given level
func Setup(out io.Writer, level string, noColor bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	logrus.SetOutput(out)
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&Formatter{NoColor: noColor || color.NoColor})

	return nil
}
