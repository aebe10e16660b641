package domain

import "errors"

var (
	// ErrNotOwner indicates an owner-gated command from anyone but the
	// registry's recorded owner.
	ErrNotOwner = errors.New("not the room owner")
	// ErrNotInRoom indicates an owner-gated command from a user who does
	// not currently occupy a registered room.
	ErrNotInRoom = errors.New("not in a study room")
	// ErrRoomNotFound indicates a lookup for an unregistered room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrPermissionDenied indicates the platform rejected an outbound
	// creation, deletion or overwrite call.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrAlreadyRunning indicates a start while a timer is running.
	ErrAlreadyRunning = errors.New("timer already running")
	// ErrNotRunning indicates a pause or status without a running timer.
	ErrNotRunning = errors.New("no running timer")
	// ErrInvalidGoal indicates a malformed goal duration.
	ErrInvalidGoal = errors.New("invalid goal duration")
)
