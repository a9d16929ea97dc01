package questiongen

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/question"
)

// Fallback tries Primary and falls back to Secondary on any error other
// than a malformed request, an unknown subject or a cancelled context.
type Fallback struct {
	Primary   Source
	Secondary Source
	Logger    *zap.Logger
}

func (f *Fallback) Generate(ctx context.Context, req Request) ([]question.Question, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	qs, err := f.Primary.Generate(ctx, req)
	if err == nil {
		return qs, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, apperr.ErrUnknownSubject) {
		return nil, err
	}
	if f.Logger != nil {
		f.Logger.Warn("primary question source failed, falling back",
			zap.String("subject", req.Subject),
			zap.Stringer("tier", req.Tier),
			zap.Error(err))
	}
	return f.Secondary.Generate(ctx, req)
}
