/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Tue Feb  6 10:02:13 2024 mstenber
 * Last modified: Mon Mar  4 13:21:48 2024 mstenber
 * Edit time:     54 min
 *
 */

// mlog is maybe-log. It is a small wrapper of standard 'log' with
// environment-variable-based and 'flag' options for choosing what to
// print; what is not printed does not cause overhead to speak of
// either, as the per-file filtering decision is cached.
package mlog

import (
	"flag"
	"log"
	"os"
	"regexp"
	"sync"
	"sync/atomic"
)

var logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)

const (
	stateUninitialized int32 = iota
	stateDisabled
	stateEnabled
)

var status int32 = stateUninitialized

var mutex sync.Mutex

// Everything below must be used only with mutex held
var flagPattern *string
var pattern string
var patternRegexp *regexp.Regexp
var file2Debug map[string]bool

func init() {
	flagPattern = flag.String("mlog", "", "Enable logging based on the given file regular expression")
}

// IsEnabled can be used to check if mlog is in use at all before
// doing something expensive.
func IsEnabled() bool {
	return atomic.LoadInt32(&status) != stateDisabled
}

// SetLogger allows overriding of the logger used as output. The
// returned undo function can be used to change the logger back to the
// old one.
func SetLogger(l *log.Logger) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	oldLogger := logger
	logger = l
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = oldLogger
	}
}

// SetPattern allows setting the mlog pattern by hand, overriding the
// environment variable-provided value. The returned undo function can
// be used to change the state back to the old one.
func SetPattern(p string) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	oldPattern := pattern
	initializeWithPattern(p)
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		initializeWithPattern(oldPattern)
	}
}

func initializeWithPattern(p string) {
	pattern = p
	if p == "" {
		atomic.StoreInt32(&status, stateDisabled)
		return
	}
	patternRegexp = regexp.MustCompile(p)
	file2Debug = make(map[string]bool)
	atomic.StoreInt32(&status, stateEnabled)
}

func initialize() {
	p := os.Getenv("MLOG")
	if *flagPattern != "" {
		p = *flagPattern
	}
	initializeWithPattern(p)
}

// Printf2 is the premier logging choice. It is supplied with the name
// of the calling file, and therefore has no runtime penalty to speak
// of when the file does not match the pattern.
func Printf2(file string, format string, args ...interface{}) {
	if atomic.LoadInt32(&status) == stateDisabled {
		return
	}
	mutex.Lock()
	defer mutex.Unlock()
	if atomic.LoadInt32(&status) == stateUninitialized {
		initialize()
		if atomic.LoadInt32(&status) == stateDisabled {
			return
		}
	}
	debug, ok := file2Debug[file]
	if !ok {
		debug = patternRegexp.FindString(file) != ""
		file2Debug[file] = debug
	}
	if debug {
		logger.Printf(format, args...)
	}
}
