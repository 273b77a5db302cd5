package coap

import (
	"github.com/astaxie/beego/logs"
)

var debugEnable bool

// GLog is the package-wide logger. Replace it with SetLogger to send
// traces somewhere other than the console.
var GLog *logs.BeeLogger

func init() {
	debugEnable = false
	GLog = logs.NewLogger(10000)
	GLog.SetLogger("console", `{"level":7}`)
	GLog.EnableFuncCallDepth(true)
	GLog.SetLogFuncCallDepth(3)
}

// Debug enables or disables per-datagram tracing.
func Debug(enable bool) {
	debugEnable = enable
}

// SetLogger swaps in an application-supplied logger.
func SetLogger(l *logs.BeeLogger) {
	if l != nil {
		GLog = l
	}
}

func traceInfo(format string, args ...interface{}) {
	if debugEnable {
		GLog.Informational(format, args...)
	}
}

func traceWarn(format string, args ...interface{}) {
	if debugEnable {
		GLog.Warning(format, args...)
	}
}

func traceError(format string, args ...interface{}) {
	if debugEnable {
		GLog.Error(format, args...)
	}
}
