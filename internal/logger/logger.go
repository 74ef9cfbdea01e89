package logger

import (
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Logger struct {
	*logrus.Entry
}

var (
	baseOnce sync.Once
	base     *logrus.Logger
)

// New returns a logger entry backed by the shared process logger. Formatter
// and level are decided once from the environment: local runs get a colored
// text formatter, everything else emits JSON.
func New() *Logger {
	baseOnce.Do(func() {
		base = logrus.New()
		base.SetOutput(os.Stdout)

		if env := os.Getenv("ENVIRONMENT"); env == "" || env == "local" {
			base.SetFormatter(&logrus.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: time.RFC3339Nano,
			})
		} else {
			base.SetFormatter(&logrus.JSONFormatter{
				TimestampFormat: time.RFC3339Nano,
			})
		}

		switch os.Getenv("LOG_LEVEL") {
		case "debug":
			base.SetLevel(logrus.DebugLevel)
		case "warn":
			base.SetLevel(logrus.WarnLevel)
		case "error":
			base.SetLevel(logrus.ErrorLevel)
		default:
			base.SetLevel(logrus.InfoLevel)
		}
	})

	return &Logger{Entry: logrus.NewEntry(base)}
}

// WithComponent tags entries with the emitting component name.
func (l *Logger) WithComponent(name string) *logrus.Entry {
	return l.WithField("component", name)
}

// WithRequest attaches request metadata, minting a request id when the
// caller did not send one.
func (l *Logger) WithRequest(r *http.Request) *logrus.Entry {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.New().String()
	}

	return l.WithFields(logrus.Fields{
		"req_id":    reqID,
		"method":    r.Method,
		"path":      r.URL.Path,
		"remote_ip": r.RemoteAddr,
	})
}
