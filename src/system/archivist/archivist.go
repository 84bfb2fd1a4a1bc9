package archivist

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	LEVEL_DEBUG   = 1
	LEVEL_INFO    = 2
	LEVEL_WARNING = 3
	LEVEL_ERROR   = 4
	LEVEL_FATAL   = 5
)

// Constants for granular debug levels
const (
	DEBUG_LEVEL_TRACE  = iota + 1 // For tracing execution flow
	DEBUG_LEVEL_INFO              // For informational debug messages
	DEBUG_LEVEL_DETAIL            // For more detailed output
	DEBUG_LEVEL_DUMP              // For dumping entire data structures
	DEBUG_LEVEL_MAX               // The highest, most detailed level
)

// Printer is the sink the archivist writes finished log lines to.
// A *log.Logger satisfies it.
type Printer interface {
	Println(v ...interface{})
}

type Archivist struct {
	logLevel   int
	debugLevel int
	printer    Printer
}

type Config struct {
	Printer    Printer
	LogLevel   int
	DebugLevel int
}

func New(conf *Config) *Archivist {
	a := &Archivist{}

	// in case no printer is given we gonne default to stdout
	a.SetPrinter(conf.Printer)
	a.SetLogLevel(conf.LogLevel)

	// granular debug verbosity only matters when debug logging is enabled
	if conf.LogLevel == LEVEL_DEBUG {
		a.SetDebugLevel(conf.DebugLevel)
	}

	return a
}

// Default returns an archivist logging warnings and above to stdout.
func Default() *Archivist {
	return New(&Config{LogLevel: LEVEL_WARNING})
}

func (a *Archivist) store(message string, stype string, formatted bool, params []interface{}) {
	// dispatch the caller file+line number
	_, file, line, _ := runtime.Caller(2)
	arrPackagePath := strings.Split(file, "/")
	packageFile := arrPackagePath[len(arrPackagePath)-1]

	logLine := time.Now().Format("2006-01-02 15:04:05") + "|" + stype + "|" + packageFile + "#" + strconv.Itoa(line) + "|"
	if len(params) == 0 {
		logLine += message
	} else if formatted {
		logLine += fmt.Sprintf(message, params...)
	} else {
		logLine += message + "|" + fmt.Sprintf("%+v", params)
	}

	a.printer.Println(logLine)
}

func (a *Archivist) Error(message string, params ...interface{}) {
	if a.logLevel <= LEVEL_ERROR {
		a.store(message, "error", false, params)
	}
}

func (a *Archivist) ErrorF(message string, params ...interface{}) {
	if a.logLevel <= LEVEL_ERROR {
		a.store(message, "error", true, params)
	}
}

func (a *Archivist) Fatal(message string, params ...interface{}) {
	if a.logLevel <= LEVEL_FATAL {
		a.store(message, "fatal", false, params)
	}
}

func (a *Archivist) FatalF(message string, params ...interface{}) {
	if a.logLevel <= LEVEL_FATAL {
		a.store(message, "fatal", true, params)
	}
}

func (a *Archivist) Info(message string, params ...interface{}) {
	if a.logLevel <= LEVEL_INFO {
		a.store(message, "info", false, params)
	}
}

func (a *Archivist) InfoF(message string, params ...interface{}) {
	if a.logLevel <= LEVEL_INFO {
		a.store(message, "info", true, params)
	}
}

func (a *Archivist) Warning(message string, params ...interface{}) {
	if a.logLevel <= LEVEL_WARNING {
		a.store(message, "warning", false, params)
	}
}

func (a *Archivist) WarningF(message string, params ...interface{}) {
	if a.logLevel <= LEVEL_WARNING {
		a.store(message, "warning", true, params)
	}
}

func (a *Archivist) Debug(level int, message string, params ...interface{}) {
	if a.logLevel <= LEVEL_DEBUG && level <= a.debugLevel {
		a.store(message, "debug", false, params)
	}
}

func (a *Archivist) DebugF(level int, message string, params ...interface{}) {
	if a.logLevel <= LEVEL_DEBUG && level <= a.debugLevel {
		a.store(message, "debug", true, params)
	}
}

func (a *Archivist) SetLogLevel(logLevel int) {
	// check for non initialized log level first
	if 0 == logLevel {
		logLevel = LEVEL_WARNING
	}

	if logLevel < LEVEL_DEBUG || logLevel > LEVEL_FATAL {
		a.Error("Given LOG_LEVEL is unknown, defaulting to LEVEL_WARNING, provided was: ", logLevel)
		logLevel = LEVEL_WARNING
	}
	a.logLevel = logLevel
}

func (a *Archivist) SetDebugLevel(level int) {
	if level < 0 {
		level = 0
	}
	a.debugLevel = level
}

func (a *Archivist) SetPrinter(printer Printer) {
	if nil == printer {
		printer = log.New(os.Stdout, "", 0)
	}
	a.printer = printer
}
