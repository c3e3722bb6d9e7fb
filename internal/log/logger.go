package log

import (
	"fmt"
	"os"

	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"

	"github.com/openshift-assisted/inventory-sync/internal/config"
)

var logger logr.Logger

func Init(conf config.Logs) error {
	loggerImpl := logrus.New()

	loggerImpl.SetLevel(logrus.Level(conf.Level + int(logrus.InfoLevel)))
	loggerImpl.SetOutput(os.Stdout)

	switch conf.Encoder {
	case config.EncoderTypeConsole:
		loggerImpl.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
		})
	case config.EncoderTypeJson:
		loggerImpl.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unexpected encoder value %v", conf.Encoder)
	}

	logger = logrusr.New(loggerImpl, logrusr.WithReportCaller())

	return nil
}

// Logger returns the process logger, or a discarding one before Init.
func Logger() logr.Logger {
	if logger.GetSink() == nil {
		return logr.Discard()
	}

	return logger
}

// Component returns the process logger named after a component and tagged with its provider.
func Component(name string, provider string) logr.Logger {
	ret := Logger().WithName(name)
	if provider != "" {
		ret = ret.WithValues("provider", provider)
	}

	return ret
}
