package repository

import "errors"

var (
	ErrStateConflict          = errors.New("persistence state changed concurrently")
	ErrStateUnavailable       = errors.New("persistence store unavailable")
	ErrPersistenceUnavailable = errors.New("persistence not updated; trigger suppressed")
	ErrNoUsableInstruments    = errors.New("no usable instruments")
	ErrEmptyUniverse          = errors.New("universe is empty")
	ErrInvalidConfig          = errors.New("invalid configuration")
)
