package watcher

import (
	"github.com/streamscope/livewatch/pkg/logging"
	"go.uber.org/zap"
)

var logger = logging.Create("watcher", logging.Dev)

func SetLogger(l *zap.SugaredLogger) {
	logger = l
}
