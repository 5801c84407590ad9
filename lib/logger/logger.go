// Package logger is a thin facade over zap so call sites keep the
// Info/Infof/Error/Errorf shape regardless of which sink is installed.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Settings stores config for Logger
type Settings struct {
	Path       string `yaml:"path"`
	Name       string `yaml:"name"`
	Ext        string `yaml:"ext"`
	TimeFormat string `yaml:"time-format"`
}

var defaultLogger = newStdoutLogger()

func newStdoutLogger() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(os.Stdout), zapcore.DebugLevel)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// Setup installs a logger that writes to stdout and to a file named
// "<Name>-<date>.<Ext>" under Path, mirroring the teacher's
// file-naming scheme. The date is taken once, when Setup runs; the
// file is not rotated afterwards.
func Setup(settings *Settings) {
	fileName := fmt.Sprintf("%s-%s.%s", settings.Name, time.Now().Format(settings.TimeFormat), settings.Ext)
	if err := os.MkdirAll(settings.Path, os.ModePerm); err != nil {
		panic("create log dir failed: " + err.Error())
	}
	f, err := os.OpenFile(filepath.Join(settings.Path, fileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		panic("open log file failed: " + err.Error())
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(f), zapcore.DebugLevel)

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(os.Stdout), zapcore.DebugLevel)

	core := zapcore.NewTee(fileCore, consoleCore)
	defaultLogger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

func Debug(v ...interface{})                 { defaultLogger.Debug(v...) }
func Debugf(format string, v ...interface{}) { defaultLogger.Debugf(format, v...) }
func Info(v ...interface{})                  { defaultLogger.Info(v...) }
func Infof(format string, v ...interface{})  { defaultLogger.Infof(format, v...) }
func Warn(v ...interface{})                  { defaultLogger.Warn(v...) }
func Warnf(format string, v ...interface{})  { defaultLogger.Warnf(format, v...) }
func Error(v ...interface{})                 { defaultLogger.Error(v...) }
func Errorf(format string, v ...interface{}) { defaultLogger.Errorf(format, v...) }
func Fatal(v ...interface{})                 { defaultLogger.Fatal(v...) }
