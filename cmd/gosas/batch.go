package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gosas/gosas"
	"github.com/gosas/gosas/config"
	sruntime "github.com/gosas/gosas/runtime"
)

// newSession builds a session over the given sinks with the discovered
// configuration applied.
func newSession(dir string, logSink, lstSink sruntime.Sink) (*gosas.Session, error) {
	cfg, err := config.Discover(dir)
	if err != nil {
		return nil, err
	}
	var opts []sruntime.VMOption
	if cfg.LoopCap > 0 {
		opts = append(opts, sruntime.WithLoopCap(cfg.LoopCap))
	}
	session := gosas.NewSession(logSink, lstSink, opts...)
	for _, lib := range cfg.Libraries {
		session.VM().AttachLibrary(lib.Ref, lib.Path, accessMode(lib.Access))
	}
	return session, nil
}

func accessMode(s string) sruntime.AccessMode {
	switch strings.ToLower(s) {
	case "readonly":
		return sruntime.AccessReadOnly
	case "temp":
		return sruntime.AccessTemp
	}
	return sruntime.AccessReadWrite
}

func runBatch(sasPath, logPath, lstPath, dir string) (int, error) {
	source, err := os.ReadFile(sasPath)
	if err != nil {
		return int(gosas.ExitParseFailure), fmt.Errorf("read source: %w", err)
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return int(gosas.ExitParseFailure), fmt.Errorf("create log: %w", err)
	}
	defer logFile.Close()
	lstFile, err := os.Create(lstPath)
	if err != nil {
		return int(gosas.ExitParseFailure), fmt.Errorf("create listing: %w", err)
	}
	defer lstFile.Close()

	session, err := newSession(dir, &sruntime.WriterSink{W: logFile}, &sruntime.WriterSink{W: lstFile})
	if err != nil {
		return int(gosas.ExitParseFailure), err
	}
	return int(session.Execute(string(source))), nil
}
