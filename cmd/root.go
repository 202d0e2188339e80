// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/apex/log"
	"github.com/spf13/cobra"
)

var ctx *log.Logger

var logFile *os.File

// reportedError is an error that has already been printed on the console
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error { return e.error }

// Execute is called by main.go
func Execute() {
	defer func() {
		buf := make([]byte, 1<<16)
		runtime.Stack(buf, false)
		if thePanic := recover(); thePanic != nil {
			if ctx != nil {
				ctx.WithField("panic", thePanic).WithField("stack", string(buf)).Fatal("Stopping because of panic")
			}
			fmt.Fprintf(os.Stdout, "\n❌ Error: %v\n", thePanic)
			os.Exit(1)
		}
	}()

	if code := exitCode(os.Stdout, MonitorCmd.Execute()); code != 0 {
		closeLogFile()
		os.Exit(code)
	}
}

// exitCode prints err unless the monitor already did and returns the process exit code
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var reported reportedError
	if !errors.As(err, &reported) {
		fmt.Fprintf(w, "\n❌ Error: %v\n", err)
	}
	return 1
}

func init() {
	cobra.OnInitialize(initConfig)
}
