package playback

import "github.com/user/tapeplay/pkg/ports"

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}

func (nopLogger) Info(string, ...interface{}) {}

func (nopLogger) Warn(string, ...interface{}) {}

func (nopLogger) Error(string, ...interface{}) {}

func (l nopLogger) WithComponent(string) ports.Logger { return l }
