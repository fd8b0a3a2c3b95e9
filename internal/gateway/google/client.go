// Package google implements the event and task gateways on top of the
// Google Calendar and Tasks APIs.
package google

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"

	"calmirror/internal"
)

type Client struct {
	cal   *calendar.Service
	tasks *tasks.Service
	log   zerolog.Logger
}

func NewClient(ctx context.Context, httpClient *http.Client, log zerolog.Logger) (*Client, error) {
	calSvc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	taskSvc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	return &Client{
		cal:   calSvc,
		tasks: taskSvc,
		log:   log.With().Str("component", "gateway").Logger(),
	}, nil
}

// defaultSleep is how long to back off after a rate-limit response.
const defaultSleep = 5 * time.Second

func (c *Client) Calendars(ctx context.Context) (map[string]string, error) {
	ids := map[string]string{}

	var pageToken string
	for {
		list, err := c.cal.CalendarList.List().Context(ctx).PageToken(pageToken).Do()
		if err != nil {
			if shouldRetry(err) {
				time.Sleep(defaultSleep)
				continue
			}
			return nil, err
		}
		for _, item := range list.Items {
			ids[strings.ToLower(item.Summary)] = item.Id
		}
		pageToken = list.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return ids, nil
}

func (c *Client) Events(ctx context.Context, calendarID string, from internal.Date) (internal.EventIterator, error) {
	call := c.cal.Events.
		List(calendarID).
		Context(ctx).
		ShowDeleted(false).
		SingleEvents(true)
	if !from.IsZero() {
		call = call.TimeMin(from.Format(time.RFC3339))
	}

	it := newEventIterator()
	go c.listEvents(calendarID, call, it.events)
	return it, nil
}

func (c *Client) Changes(ctx context.Context, calendarID, syncToken string) (internal.EventIterator, error) {
	call := c.cal.Events.
		List(calendarID).
		Context(ctx).
		ShowDeleted(true).
		SingleEvents(true).
		SyncToken(syncToken)

	it := newEventIterator()
	go c.listEvents(calendarID, call, it.events)
	return it, nil
}

func (c *Client) listEvents(calendarID string, call *calendar.EventsListCall, eventCh chan eventOrError) {
	defer close(eventCh)

	var nextPageToken string
	for {
		events, err := call.PageToken(nextPageToken).Do()
		if err != nil {
			if shouldRetry(err) {
				time.Sleep(defaultSleep)
				continue
			}
			if tokenExpired(err) {
				err = internal.ErrTokenExpired
			}
			eventCh <- eventOrError{err: err}
			return
		}

		for _, item := range events.Items {
			eventCh <- eventOrError{
				e:         newEvent(calendarID, item),
				syncToken: events.NextSyncToken,
			}
		}
		nextPageToken = events.NextPageToken
		if nextPageToken == "" {
			if events.NextSyncToken != "" {
				eventCh <- eventOrError{syncToken: events.NextSyncToken}
			}
			return
		}
	}
}

func (c *Client) Event(ctx context.Context, calendarID, id string) (*internal.Event, error) {
	for {
		gevent, err := c.cal.Events.Get(calendarID, id).Context(ctx).Do()
		if err == nil {
			return newEvent(calendarID, gevent), nil
		}
		if shouldRetry(err) {
			time.Sleep(defaultSleep)
			continue
		}
		if notFound(err) || alreadyDeleted(err) {
			return nil, internal.ErrNotFound
		}
		return nil, err
	}
}

func (c *Client) Insert(ctx context.Context, calendarID string, ev *internal.Event) (string, error) {
	for {
		gevent, err := c.cal.Events.Insert(calendarID, newGoogleEvent(ev)).Context(ctx).Do()
		if err == nil {
			c.log.Debug().Str("calendar", calendarID).Str("event", gevent.Id).Msg("inserted event")
			return gevent.Id, nil
		}
		if shouldRetry(err) {
			time.Sleep(defaultSleep)
			continue
		}
		return "", err
	}
}

func (c *Client) Patch(ctx context.Context, calendarID, id string, ev *internal.Event) error {
	for {
		_, err := c.cal.Events.Patch(calendarID, id, newGoogleEvent(ev)).Context(ctx).Do()
		if err == nil {
			c.log.Debug().Str("calendar", calendarID).Str("event", id).Msg("patched event")
			return nil
		}
		if shouldRetry(err) {
			time.Sleep(defaultSleep)
			continue
		}
		return err
	}
}

func (c *Client) Delete(ctx context.Context, calendarID, id string) (internal.DeleteOutcome, error) {
	for {
		err := c.cal.Events.Delete(calendarID, id).Context(ctx).Do()
		if err == nil {
			c.log.Debug().Str("calendar", calendarID).Str("event", id).Msg("deleted event")
			return internal.Deleted, nil
		}
		if shouldRetry(err) {
			time.Sleep(defaultSleep)
			continue
		}
		if alreadyDeleted(err) || notFound(err) {
			return internal.AlreadyAbsent, nil
		}
		return internal.Deleted, err
	}
}

func shouldRetry(err error) bool {
	if errIsReason(err, "rateLimitExceeded") {
		return true
	}
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusTooManyRequests
}

// tokenExpired reports a stale sync token. The API signals it as 410 GONE
// on a list call carrying a syncToken, with reason fullSyncRequired.
func tokenExpired(err error) bool {
	if errIsReason(err, "fullSyncRequired") {
		return true
	}
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusGone
}

func alreadyDeleted(err error) bool {
	if errIsReason(err, "deleted") {
		return true
	}
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusGone
}

func notFound(err error) bool {
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusNotFound
}

func errIsReason(err error, reason string) bool {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return false
	}

	for _, err := range gErr.Errors {
		switch err.Reason {
		case reason:
			return true
		}
	}
	return false
}
