package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrJobCancelled       = errors.New("job cancelled by user")
	ErrCredentialsMissing = errors.New("OpenAI API key not configured")
	ErrNoClips            = errors.New("no clips provided")
)
