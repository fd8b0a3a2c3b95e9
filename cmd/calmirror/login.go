package main

import "context"

func loginCmd(ctx context.Context, e *env) error {
	session, err := e.session()
	if err != nil {
		return err
	}
	if err := session.Login(ctx); err != nil {
		return err
	}
	e.log.Info().Msg("token saved")
	return nil
}
