package model

import "errors"

// Common errors used across the application
var (
	// Participant errors
	ErrParticipantNotFound = errors.New("participant not found")

	// Event errors
	ErrEventNotFound = errors.New("event not found")

	// Encounter errors
	ErrEncounterNotFound = errors.New("encounter not found")
	ErrSelfScan          = errors.New("participant scanned their own code")

	// Storage errors
	ErrAlreadyExists = errors.New("record already exists")
)
