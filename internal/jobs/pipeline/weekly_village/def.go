package weekly_village

import (
	"github.com/yungbote/pinegate-backend/internal/data/repos"
	"github.com/yungbote/pinegate-backend/internal/modules/village/steps"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
	"github.com/yungbote/pinegate-backend/internal/platform/narration"
)

const Type = "weekly_village"

type Options struct {
	MaxConcurrency int
	TitleBatchSize int
	// Rand defaults to steps.NewRand().
	Rand steps.Rand
}

type Pipeline struct {
	log  *logger.Logger
	repo repos.Set
	gen  narration.Generator
	opts Options
}

func New(baseLog *logger.Logger, repo repos.Set, gen narration.Generator, opts Options) *Pipeline {
	return &Pipeline{
		log:  baseLog.With("job", Type),
		repo: repo,
		gen:  gen,
		opts: opts,
	}
}

func (p *Pipeline) Type() string { return Type }
