package main

import "errors"

var (
	ErrNoSuchProcess    = errors.New("no such process")
	ErrTerminated       = errors.New("process is terminated")
	ErrAlreadyQueued    = errors.New("process is already running or ready")
	ErrNoProcesses      = errors.New("there are no processes")
	ErrEmptyProgram     = errors.New("nothing to load")
	ErrInvalidProgram   = errors.New("invalid op code(s)")
	ErrProgramTooLarge  = errors.New("program does not fit in a segment")
	ErrMemoryFull       = errors.New("memory is full and the disk is not formatted")
	ErrInvalidQuantum   = errors.New("quantum must be a positive number of cycles")
	ErrUnknownAlgorithm = errors.New("unknown scheduling algorithm")
	ErrNotStepping      = errors.New("single step mode is off")
	ErrInvalidConfig    = errors.New("invalid kernel configuration")

	ErrNotFormatted     = errors.New("disk is not formatted")
	ErrFileExists       = errors.New("file already exists")
	ErrFileNotFound     = errors.New("file not found")
	ErrFileNameTooLong  = errors.New("file name too long")
	ErrFileNameInvalid  = errors.New("invalid file name")
	ErrDirectoryFull    = errors.New("directory is full")
	ErrDiskFull         = errors.New("disk is full")
	ErrCorruptChain     = errors.New("file block chain is corrupt")
	ErrInvalidDiskImage = errors.New("invalid disk image")
	ErrSwapInUse        = errors.New("disk holds swapped out processes")
	ErrReservedName     = errors.New("file names starting with " + swapPrefix + " are reserved")
)
