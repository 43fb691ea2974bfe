package service

import "errors"

var (
	ErrNotReady                 = errors.New("conversation store not initialized")
	ErrInitializationInProgress = errors.New("initialization already in progress")

	ErrTemporaryConversation    = errors.New("temporary conversations are not exported")
	ErrUnknownBundleFormat      = errors.New("unknown bundle format")
	ErrUnsupportedBundleVersion = errors.New("unsupported bundle version")
)
