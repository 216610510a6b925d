package app

import (
	"errors"
	"strings"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// hintedError attaches a remediation hint to an error without changing its kind
type hintedError struct {
	err  error
	hint string
}

func (e *hintedError) Error() string { return e.err.Error() }

func (e *hintedError) Unwrap() error { return e.err }

func (e *hintedError) Hint() string { return e.hint }

// withHint adds the remediation hint that fits a failed task, if any
func withHint(err error, sel domain.Selection) error {
	if err == nil || domain.HintOf(err) != "" || errors.Is(err, domain.ErrCancelled) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "ffmpeg"), strings.Contains(msg, "postprocessor"):
		return &hintedError{err: err, hint: domain.HintRetryOriginal}
	case sel.Direct && strings.Contains(msg, "unrecognized uri"):
		return &hintedError{err: err, hint: domain.HintUseEmbedded}
	case sel.Direct && errors.Is(err, domain.ErrNoUsableFormat):
		return &hintedError{err: err, hint: domain.HintUseEmbedded}
	case sel.Direct && domain.KindOf(err) == domain.KindTransfer:
		return &hintedError{err: err, hint: domain.HintUseEmbedded}
	}
	return err
}
