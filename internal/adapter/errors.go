package adapter

import "errors"

var (
	ErrUnauthorized = errors.New("client unauthorized")
	ErrNotFound     = errors.New("resource not found")
	ErrServerFault  = errors.New("server fault")
	ErrInvalidToken = errors.New("invalid token")
)
