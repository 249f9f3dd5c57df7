package student

import "errors"

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrSectionNotFound = errors.New("section not found")
	ErrSameSection     = errors.New("student is already in this section")
	ErrStudentInactive = errors.New("only active students can be transferred")
	ErrSectionChanged  = errors.New("student section changed during transfer")
)
