// Package werror wraps errors with the file, line, and function where they
// were wrapped plus an optional context map, so an error can be traced back
// to the component boundary it crossed without a stack trace capture.
package werror

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Wrapper wraps an error with provenance and optional context.
type Wrapper struct {
	err      error
	file     string
	line     int
	function string
	context  map[string]any
}

func (w Wrapper) Error() string {
	var msg strings.Builder
	msg.WriteString(w.function)
	msg.WriteString(":")
	msg.WriteString(strconv.Itoa(w.line))

	if w.context != nil {
		msg.WriteString("{")
		for k, v := range w.context {
			msg.WriteString(k)
			msg.WriteString("=")
			msg.WriteString(fmt.Sprintf("%v", v))
		}
		msg.WriteString("}")
	}

	if w.err != nil {
		msg.WriteString("->")
		msg.WriteString(w.err.Error())
	}
	return msg.String()
}

func (w Wrapper) Unwrap() error { return w.err }

// Wrap wraps err with the caller's file/line/function. Returns nil for nil.
func Wrap(err error) error {
	return wrap(err, nil)
}

// WrapWithMsg wraps err and attaches msg under the "msg" context key.
func WrapWithMsg(err error, msg string) error {
	if err == nil {
		return nil
	}
	return wrap(err, map[string]any{"msg": msg})
}

// WrapWithContext wraps err with the caller's file/line/function plus ctx.
func WrapWithContext(err error, ctx map[string]any) error {
	return wrap(err, ctx)
}

// wrap is called only from the exported functions above, so
// runtime.Caller(2) skips wrap and that function and lands on their caller.
func wrap(err error, ctx map[string]any) error {
	if err == nil {
		return nil
	}
	pc, file, line, _ := runtime.Caller(2)
	fn := runtime.FuncForPC(pc)
	name := "unknown"
	if fn != nil {
		name = fn.Name()
	}
	return Wrapper{
		err:      err,
		file:     file,
		line:     line,
		function: name,
		context:  ctx,
	}
}
