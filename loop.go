// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"log/slog"

	"github.com/eapache/queue"
)

// Loop is a single threaded, cooperative task runner.  Asynchronous
// completions of non-sequenced sockets are posted here and only run when the
// test drains the loop.  Nothing runs on another goroutine.
type Loop struct {
	tasks   *queue.Queue
	running bool
	log     *slog.Logger
}

// NewLoop creates an empty loop.
func NewLoop() *Loop {
	return &Loop{
		tasks: queue.New(),
		log:   nopLogger(),
	}
}

// SetLogger replaces the loop's logger.
func (l *Loop) SetLogger(log *slog.Logger) {
	if log != nil {
		l.log = log
	}
}

// Post queues a task.  Tasks run in the order they were posted.
func (l *Loop) Post(task func()) {
	if task == nil {
		return
	}
	l.tasks.Add(task)
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	return l.tasks.Length()
}

// RunUntilIdle runs tasks, including the ones posted by running tasks, until
// the queue is empty.  It returns how many tasks ran.  A nested call made from
// inside a task returns 0 immediately; the outer call keeps draining.
func (l *Loop) RunUntilIdle() int {
	if l.running {
		return 0
	}
	l.running = true
	defer func() { l.running = false }()

	var ran int
	for l.tasks.Length() > 0 {
		task := l.tasks.Remove().(func())
		task()
		ran++
	}
	if ran > 0 {
		l.log.Debug("loop idle", slog.Int("ran", ran))
	}
	return ran
}
