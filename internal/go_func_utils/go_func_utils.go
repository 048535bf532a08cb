// Package go_func_utils starts goroutines whose panics reach the log file.
package go_func_utils

import (
	"log"
	"runtime/debug"
	"sync"
)

// SafeGo runs fn on a new goroutine. The terminal UI owns stdout and swallows
// crash output, so a panic is written to logger with its stack before it is
// re-raised.
func SafeGo(logger *log.Logger, fn func()) {
	go func() {
		defer recoverAndLog(logger, "goroutine")
		fn()
	}()
}

// SafeGoGroup is SafeGo tracked by wg. name identifies the goroutine in the
// panic report.
func SafeGoGroup(wg *sync.WaitGroup, logger *log.Logger, name string, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer recoverAndLog(logger, name)
		fn()
	}()
}

func recoverAndLog(logger *log.Logger, name string) {
	if r := recover(); r != nil {
		logger.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
		panic(r)
	}
}
