// Package auth holds the OAuth session used to reach the remote calendar
// and task services. The session is an explicit object handed to the
// gateway constructors; there is no process-wide credential state.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/tasks/v1"
)

type Session struct {
	oauthCfg  *oauth2.Config
	tokenFile string
}

func NewSession(credJSON []byte, tokenFile string) (*Session, error) {
	oauthCfg, err := google.ConfigFromJSON(credJSON,
		calendar.CalendarEventsScope,
		calendar.CalendarReadonlyScope,
		tasks.TasksReadonlyScope,
	)
	if err != nil {
		return nil, errors.Wrap(err, "auth: parsing credentials file")
	}
	return &Session{
		oauthCfg:  oauthCfg,
		tokenFile: tokenFile,
	}, nil
}

// Client returns an HTTP client that authenticates with the stored token,
// refreshing it transparently.
func (s *Session) Client(ctx context.Context) (*http.Client, error) {
	tok, err := s.token()
	if err != nil {
		return nil, err
	}
	return s.oauthCfg.Client(ctx, tok), nil
}

func (s *Session) token() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.tokenFile)
	if os.IsNotExist(err) {
		return nil, errors.New("auth: no stored token, run the login command first")
	}
	if err != nil {
		return nil, errors.Wrap(err, "auth: reading token file")
	}
	tok := new(oauth2.Token)
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, errors.Wrap(err, "auth: decoding token file")
	}
	return tok, nil
}

func (s *Session) saveToken(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return errors.Wrap(err, "auth: encoding token")
	}
	if err := os.MkdirAll(filepath.Dir(s.tokenFile), 0o700); err != nil {
		return errors.Wrap(err, "auth: creating token dir")
	}
	return errors.Wrap(os.WriteFile(s.tokenFile, data, 0o600), "auth: writing token file")
}

// Login runs the browser consent flow on a local callback server and stores
// the resulting token next to any previous one.
func (s *Session) Login(ctx context.Context) error {
	state := fmt.Sprintf("calmirror-%d", os.Getpid())
	authURL := s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(os.Stdout, "\nGo to the following link in your browser\n%s\n", authURL)

	mux := http.NewServeMux()
	server := &http.Server{
		Addr:    ":8080",
		Handler: mux,
	}

	var (
		token   *oauth2.Token
		authErr error
	)

	mux.HandleFunc("/callback", func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			go server.Shutdown(ctx)
		}()

		query := req.URL.Query()
		if query.Get("state") != state {
			authErr = errors.New("auth: oauth link is not valid")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		token, authErr = s.oauthCfg.Exchange(ctx, query.Get("code"))
		if authErr != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, "Unable to retrieve token:", authErr)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "All good, you can close this window!")
	})

	serverCh := make(chan struct{})
	var svrErr error
	go func() {
		svrErr = server.ListenAndServe()
		close(serverCh)
	}()

	<-serverCh

	if svrErr != nil && svrErr != http.ErrServerClosed {
		return svrErr
	}
	if authErr != nil {
		return authErr
	}
	return s.saveToken(token)
}
