package google

import (
	"calmirror/internal"
)

type eventOrError struct {
	e         *internal.Event
	syncToken string
	err       error
}

type eventIterator struct {
	events    chan eventOrError
	current   eventOrError
	syncToken string
}

func newEventIterator() *eventIterator {
	return &eventIterator{
		events: make(chan eventOrError),
	}
}

func (it *eventIterator) Next() bool {
	for {
		current, ok := <-it.events
		if !ok {
			return false
		}
		it.current = current
		if current.err != nil {
			return false
		}
		if current.syncToken != "" {
			it.syncToken = current.syncToken
		}
		if current.e != nil {
			return true
		}
		// token-only marker from the final page, keep draining
	}
}

func (it *eventIterator) Event() *internal.Event {
	c := it.current
	if c.e == nil && c.err == nil {
		panic("google: Event() called before Next()")
	}
	return c.e
}

func (it *eventIterator) SyncToken() string {
	return it.syncToken
}

func (it *eventIterator) Err() error {
	return it.current.err
}

type taskOrError struct {
	t   *internal.Task
	err error
}

type taskIterator struct {
	tasks   chan taskOrError
	current taskOrError
}

func newTaskIterator() *taskIterator {
	return &taskIterator{
		tasks: make(chan taskOrError),
	}
}

func (it *taskIterator) Next() bool {
	current, ok := <-it.tasks
	if !ok {
		return false
	}
	it.current = current
	return current.err == nil
}

func (it *taskIterator) Task() *internal.Task {
	c := it.current
	if c.t == nil && c.err == nil {
		panic("google: Task() called before Next()")
	}
	return c.t
}

func (it *taskIterator) Err() error {
	return it.current.err
}
