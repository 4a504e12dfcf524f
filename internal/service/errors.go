package service

import (
	"errors"
	"fmt"
)

var (
	ErrExamNotFound      = errors.New("exam not found")
	ErrExamPublished     = errors.New("exam is published and can no longer be changed")
	ErrSessionNotFound   = errors.New("exam session not found")
	ErrQuestionNotInExam = errors.New("question does not belong to this exam")
	ErrResultNotFinal    = errors.New("exam session is not finished yet")
	ErrSessionNotStarted = errors.New("exam session has not been started")
	ErrStorage           = errors.New("storage failure")
)

// StorageError wraps a failure of the catalog or session store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorage) match any StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
