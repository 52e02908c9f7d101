package main

import (
	"github.com/gosas/gosas"
	sruntime "github.com/gosas/gosas/runtime"
)

// sinkKind tells the frontend which channel a line belongs to, so the
// log and the listing can be styled apart.
type sinkKind int

const (
	sinkLog sinkKind = iota
	sinkListing
)

type sinkLineMsg struct {
	kind  sinkKind
	level sruntime.Level
	text  string
}

type execDoneMsg struct {
	status gosas.ExitStatus
}

type pollMsg struct{}
