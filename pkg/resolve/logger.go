package resolve

import (
	"github.com/streamscope/livewatch/pkg/logging"
	"go.uber.org/zap"
)

var logger = logging.Create("resolve", logging.Dev)

func SetLogger(l *zap.SugaredLogger) {
	logger = l
}
