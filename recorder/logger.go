package recorder

import (
	"github.com/streamscope/livewatch/pkg/logging"
	"github.com/streamscope/livewatch/pkg/logging/zapadapter"
)

var logger logging.KVLogger = zapadapter.NewKV(logging.Create("recorder", logging.Dev).Desugar())

func SetLogger(l logging.KVLogger) {
	logger = l
}
