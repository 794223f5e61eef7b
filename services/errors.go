// Package services implements URL signing, signed URL verification and the
// template registry on top of urlgen and storage.
package services

import (
	"errors"

	"go-htmlcsstoimage/storage"
)

var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrInvalidEncoding        = errors.New("text is not valid UTF-8")
	ErrSignatureMismatch      = errors.New("signature does not match")
	ErrTemplateExists         = errors.New("template already exists")
	ErrTemplateNotFound       = errors.New("template not found")
	ErrStorageCapacityReached = errors.New("storage capacity reached")
)

func handleStorageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrTemplateExists):
		return ErrTemplateExists
	case errors.Is(err, storage.ErrStorageCapacityReached):
		return ErrStorageCapacityReached
	case errors.Is(err, storage.ErrTemplateNotFound):
		return ErrTemplateNotFound
	default:
		return err
	}
}
