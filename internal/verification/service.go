package verification

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"formgate/internal/form"
	"formgate/internal/hashstore"
	"formgate/internal/identity/attr"
	"formgate/internal/submission"
	"formgate/internal/whitelist"
	dErrors "formgate/pkg/domain-errors"
)

const checkTimeout = 10 * time.Second

// Service runs the submission-time checks: whitelist membership and prefill
// hash verification. The two lookups are independent, so they run in
// parallel under one cancellation scope.
type Service struct {
	hashes    *hashstore.Service
	whitelist *whitelist.Service
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(hashes *hashstore.Service, wl *whitelist.Service, opts ...Option) *Service {
	s := &Service{hashes: hashes, whitelist: wl, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckSubmission verifies the processed responses for one submission and
// returns them with verified answers marked IsUserVerified. The whitelist
// check only runs for forms that restrict submitters; respondents not on
// the list are rejected before any hash comparison result is revealed.
func (s *Service) CheckSubmission(ctx context.Context, frm *form.Form, respondentID string, processed []submission.ProcessedResponse) ([]submission.ProcessedResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	var hashes map[attr.Internal]string
	g.Go(func() error {
		found, err := s.hashes.Fetch(ctx, respondentID, frm.ID)
		if err != nil {
			return err
		}
		hashes = found
		return nil
	})

	whitelisted := true
	if frm.WhitelistID != "" {
		g.Go(func() error {
			ok, err := s.whitelist.IsWhitelisted(ctx, frm.WhitelistID, respondentID)
			if err != nil {
				return err
			}
			whitelisted = ok
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !whitelisted {
		s.logger.Info("submission rejected by whitelist", "formId", frm.ID)
		return nil, dErrors.New(dErrors.CodeNotWhitelisted, "submitter is not on the form's whitelist")
	}

	verified, err := Verify(processed, hashes, s.logger)
	if err != nil {
		return nil, err
	}

	out := make([]submission.ProcessedResponse, len(processed))
	copy(out, processed)
	for i := range out {
		if _, ok := verified[out[i].FieldID]; ok {
			out[i].IsUserVerified = true
		}
	}
	return out, nil
}
