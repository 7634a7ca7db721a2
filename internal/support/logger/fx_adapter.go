package logger

import (
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// Module installs the logrus-backed event logger into an fx application.
var Module = fx.WithLogger(NewFxLoggerAdapter)

// FxLoggerAdapter routes fx lifecycle events through this package.
// Container chatter goes to DEBUG; failures go to ERROR.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent implements fxevent.Logger.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		Debugf("OnStart hook executing: %s", trimFuncName(e.FunctionName))
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			Errorf("OnStart hook failed: %s, error: %v", trimFuncName(e.FunctionName), e.Err)
			return
		}
		Debugf("OnStart hook executed: %s (%s)", trimFuncName(e.FunctionName), e.Runtime)
	case *fxevent.OnStopExecuting:
		Debugf("OnStop hook executing: %s", trimFuncName(e.FunctionName))
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			Errorf("OnStop hook failed: %s, error: %v", trimFuncName(e.FunctionName), e.Err)
			return
		}
		Debugf("OnStop hook executed: %s", trimFuncName(e.FunctionName))
	case *fxevent.Supplied:
		if e.Err != nil {
			Errorf("Supply failed for %s: %v", e.TypeName, e.Err)
		}
	case *fxevent.Provided:
		if e.Err != nil {
			Errorf("Provide failed: %v", e.Err)
			return
		}
		for _, name := range e.OutputTypeNames {
			Debugf("Provided: %s", name)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("Invoke failed: %s, error: %v", e.FunctionName, e.Err)
		}
	case *fxevent.Stopping:
		Debugf("Stopping on signal: %s", e.Signal)
	case *fxevent.Stopped:
		if e.Err != nil {
			Errorf("Stop failed: %v", e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("Start failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			Errorf("Rollback failed: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("Start failed: %v", e.Err)
			return
		}
		Debugf("Application started.")
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("Custom fx logger initialization failed: %v", e.Err)
		}
	}
}

// trimFuncName drops anonymous-function suffixes such as ".func1" from fx function names.
func trimFuncName(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		return funcName[:idx]
	}
	return funcName
}
