package errors

import "fmt"

var (
	// Silent outcomes. The router resolves these locally and never surfaces
	// them to the originating connection; they exist so tests can assert
	// "no observable effect" as a first-class result.
	ErrDeliveryBlocked = fmt.Errorf("delivery suppressed by block list")
	ErrNotSender       = fmt.Errorf("requester is not the message sender")
	ErrMessageNotFound = fmt.Errorf("message not found")
	ErrEntityNotFound  = fmt.Errorf("entity not found")
	ErrUserNotFound    = fmt.Errorf("user not found")
	ErrUnknownReceiver = fmt.Errorf("receiver is neither a user nor an entity")

	// Surfaced outcomes. Reported to the requester only, never broadcast.
	ErrNameTaken   = fmt.Errorf("name already owned by a user or entity")
	ErrPersistence = fmt.Errorf("directory store write failed")

	// Transport and registration.
	ErrSlowConsumer       = fmt.Errorf("connection send buffer full")
	ErrJoinRequired       = fmt.Errorf("first frame must be a join")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	// Supervision.
	ErrWorkerPanic   = fmt.Errorf("worker panic")
	ErrEmptyWordList = fmt.Errorf("no censored words have been found")
)
