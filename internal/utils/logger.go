package utils

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// 所有组件共享同一个logrus实例，输出到stderr，避免和命令结果混在一起
var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	l.SetLevel(logrus.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// SetVerbose 打开或关闭调试输出
func SetVerbose(verbose bool) {
	if verbose {
		base.SetLevel(logrus.DebugLevel)
		return
	}
	if os.Getenv("DEBUG") != "true" {
		base.SetLevel(logrus.InfoLevel)
	}
}

// SetOutput 重定向日志输出（测试时使用）
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

type Logger struct {
	name  string
	entry *logrus.Entry
}

func NewLogger(name string) *Logger {
	return &Logger{
		name:  name,
		entry: base.WithField("component", name),
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// WithField 返回附带额外字段的子logger
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		name:  l.name,
		entry: l.entry.WithField(key, value),
	}
}
