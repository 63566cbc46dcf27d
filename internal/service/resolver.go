package service

import (
	"context"
	"fmt"

	"github.com/jaam8/council_bot/internal/models"
	"github.com/jaam8/council_bot/pkg/edge"
	"github.com/jaam8/council_bot/pkg/logger"
	"go.uber.org/zap"
)

// Resolution is a successful region lookup.
type Resolution struct {
	Region models.Region
	Grant  models.SessionGrant
}

// RegionResolver finds the region holding a member, since the ACP number
// does not encode it. Regions are tried one at a time, in order.
type RegionResolver struct {
	c EdgeClient
	l *zap.Logger
}

func NewRegionResolver(c EdgeClient, l *zap.Logger) *RegionResolver {
	return &RegionResolver{
		c: c,
		l: l,
	}
}

type attempt struct {
	op            string
	path          string
	defaultReason string
	body          func(region models.Region) any
}

func (r *RegionResolver) ValidateAcrossRegions(ctx context.Context, acp string, regions []models.Region) (*Resolution, error) {
	return r.resolve(ctx, acp, regions, attempt{
		op:            "validate",
		path:          edge.PathValidate,
		defaultReason: models.ReasonValidationFailed,
		body: func(region models.Region) any {
			return models.ValidateRequest{ACP: acp, Region: region}
		},
	})
}

func (r *RegionResolver) ResumeAcrossRegions(ctx context.Context, acp, resumeCode string, regions []models.Region) (*Resolution, error) {
	return r.resolve(ctx, acp, regions, attempt{
		op:            "resume",
		path:          edge.PathResume,
		defaultReason: models.ReasonResumeFailed,
		body: func(region models.Region) any {
			return models.ResumeRequest{ACP: acp, ResumeCode: resumeCode, Region: region}
		},
	})
}

// resolve returns on the first region that accepts, and stops early on
// already_voted. Otherwise the first non-empty reason seen is reported.
func (r *RegionResolver) resolve(ctx context.Context, acp string, regions []models.Region, a attempt) (*Resolution, error) {
	var firstReason string
	var transportErr error

	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrEdgeUnavailable, err)
		}
		r.l.Debug("trying region",
			zap.String("op", a.op),
			zap.String("region", string(region)),
			logger.Masked("acp", acp))

		resp, err := r.c.Post(ctx, a.path, a.body(region))
		if err != nil {
			r.l.Warn("region attempt failed",
				zap.String("op", a.op),
				zap.String("region", string(region)),
				zap.Error(err))
			if transportErr == nil {
				transportErr = err
			}
			continue
		}

		if resp.Accepted() {
			var grant models.SessionGrant
			if err := resp.Decode(&grant); err != nil {
				r.l.Warn("accepted answer could not be decoded",
					zap.String("op", a.op),
					zap.String("region", string(region)),
					zap.Error(err))
				continue
			}
			// A grant always carries a token; ok without one is not a success.
			if grant.Token == "" {
				r.l.Warn("accepted answer carries no token",
					zap.String("op", a.op),
					zap.String("region", string(region)))
				continue
			}
			resolved := region
			if grant.Region != "" {
				resolved = grant.Region
			}
			r.l.Debug("region resolved",
				zap.String("op", a.op),
				zap.String("region", string(resolved)))
			return &Resolution{Region: resolved, Grant: grant}, nil
		}

		reason := resp.Reason()
		r.l.Debug("region refused",
			zap.String("op", a.op),
			zap.String("region", string(region)),
			zap.Int("status_code", resp.StatusCode),
			zap.String("reason", reason))
		if reason == models.ReasonAlreadyVoted {
			return nil, &models.ReasonError{Op: a.op, Reason: reason}
		}
		if firstReason == "" && reason != "" {
			firstReason = reason
		}
	}

	if firstReason != "" {
		return nil, &models.ReasonError{Op: a.op, Reason: firstReason}
	}
	if transportErr != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEdgeUnavailable, transportErr)
	}
	return nil, &models.ReasonError{Op: a.op, Reason: a.defaultReason}
}
