package logger

import (
	"bytes"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type stringer interface {
	String() string
}

type logPair struct {
	logFn func(...any)
	obj   string
	msg   string
	done  chan struct{} // set by Flush
}

const (
	logSize   = 1000
	objWidth  = 20
	lineWidth = 100
)

var (
	logCh   = make(chan logPair, logSize)
	started atomic.Bool
	once    sync.Once
)

func objToString(obj any) (objStr string) {
	if obj == nil {
		objStr = "NIL"
	} else if stringerObj, ok := obj.(stringer); ok {
		objStr = stringerObj.String()
	} else if objStr, ok = obj.(string); ok {
	} else {
		objStr = reflect.TypeOf(obj).Name()
	}
	if len(objStr) > objWidth {
		objStr = objStr[:objWidth]
	}
	return
}

// Init sets the level and starts the sink. Until Init is called nothing is logged, so
// library code never blocks on a sink nobody drains.
func Init(lvl logrus.Level) {
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		PadLevelText:    true,
		TimestampFormat: "2006/02/01 15:04:05",
	})

	once.Do(func() {
		go func() {
			sb := new(bytes.Buffer)
			for pair := range logCh {
				if pair.done != nil {
					close(pair.done)
					continue
				}
				fmt.Fprintf(sb, "|%*s|%-*s", objWidth, pair.obj, lineWidth, pair.msg)
				pair.logFn(sb.String())
				sb.Reset()
			}
		}()
		started.Store(true)
	})
}

// Flush blocks until every queued line has been written.
func Flush() {
	if !started.Load() {
		return
	}
	done := make(chan struct{})
	logCh <- logPair{done: done}
	<-done
}

func enabled(lvl logrus.Level) bool {
	return started.Load() && logrus.IsLevelEnabled(lvl)
}

func send(lvl logrus.Level, logFn func(...any), object any, msg string) {
	if !enabled(lvl) {
		return
	}
	logCh <- logPair{
		logFn: logFn,
		obj:   objToString(object),
		msg:   msg,
	}
}

func Trace(object any, message string) {
	send(logrus.TraceLevel, logrus.Trace, object, message)
}

func Tracef(object any, message string, args ...any) {
	if enabled(logrus.TraceLevel) {
		send(logrus.TraceLevel, logrus.Trace, object, fmt.Sprintf(message, args...))
	}
}

func Debug(object any, message string) {
	send(logrus.DebugLevel, logrus.Debug, object, message)
}

func Debugf(object any, message string, args ...any) {
	if enabled(logrus.DebugLevel) {
		send(logrus.DebugLevel, logrus.Debug, object, fmt.Sprintf(message, args...))
	}
}

func Info(object any, message string) {
	send(logrus.InfoLevel, logrus.Info, object, message)
}

func Infof(object any, message string, args ...any) {
	if enabled(logrus.InfoLevel) {
		send(logrus.InfoLevel, logrus.Info, object, fmt.Sprintf(message, args...))
	}
}

func Warning(object any, message string) {
	send(logrus.WarnLevel, logrus.Warning, object, message)
}

func Warningf(object any, message string, args ...any) {
	if enabled(logrus.WarnLevel) {
		send(logrus.WarnLevel, logrus.Warning, object, fmt.Sprintf(message, args...))
	}
}

func Error(object any, message string) {
	send(logrus.ErrorLevel, logrus.Error, object, message)
}

func Errorf(object any, message string, args ...any) {
	if enabled(logrus.ErrorLevel) {
		send(logrus.ErrorLevel, logrus.Error, object, fmt.Sprintf(message, args...))
	}
}

func Fatal(object any, message string) {
	Flush()
	logrus.Fatalf("|%*s|%-*s", objWidth, objToString(object), lineWidth, message)
}

func Fatalf(object any, message string, args ...any) {
	Fatal(object, fmt.Sprintf(message, args...))
}
