package google

import (
	"context"
	"time"

	"google.golang.org/api/tasks/v1"

	"calmirror/internal"
)

func (c *Client) Tasks(ctx context.Context, listID string, updatedSince time.Time) (internal.TaskIterator, error) {
	call := c.tasks.Tasks.
		List(listID).
		Context(ctx).
		ShowHidden(true).
		ShowCompleted(true).
		ShowDeleted(true)
	if !updatedSince.IsZero() {
		call = call.UpdatedMin(updatedSince.Format(time.RFC3339))
	}

	it := newTaskIterator()
	go c.listTasks(listID, call, it.tasks)
	return it, nil
}

func (c *Client) listTasks(listID string, call *tasks.TasksListCall, taskCh chan taskOrError) {
	defer close(taskCh)

	var nextPageToken string
	for {
		result, err := call.PageToken(nextPageToken).Do()
		if err != nil {
			if shouldRetry(err) {
				time.Sleep(defaultSleep)
				continue
			}
			taskCh <- taskOrError{err: err}
			return
		}

		for _, item := range result.Items {
			taskCh <- taskOrError{t: newTask(listID, item)}
		}
		nextPageToken = result.NextPageToken
		if nextPageToken == "" {
			return
		}
	}
}

func (c *Client) Task(ctx context.Context, listID, id string) (*internal.Task, error) {
	for {
		gtask, err := c.tasks.Tasks.Get(listID, id).Context(ctx).Do()
		if err == nil {
			return newTask(listID, gtask), nil
		}
		if shouldRetry(err) {
			time.Sleep(defaultSleep)
			continue
		}
		if notFound(err) {
			return nil, internal.ErrNotFound
		}
		return nil, err
	}
}
